package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample mcpserve configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/mcpserve/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  mcpserve init

  # Initialize with custom path
  mcpserve init --config /etc/mcpserve/config.yaml

  # Force overwrite existing config
  mcpserve init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file: enable auth and configure at least one scheme")
	fmt.Println("  2. Start the server with: mcpserve start")
	fmt.Printf("  3. Or specify custom config: mcpserve start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  Prefer basic.passwordHash (bcrypt) over basic.password in files at rest:")
	fmt.Println(`    htpasswd -nbB "" "password" | cut -d: -f2`)

	return nil
}
