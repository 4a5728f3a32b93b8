package main

import (
	"os"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/cmd/mcpserve/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
