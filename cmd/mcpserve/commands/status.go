package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/cli/output"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

var (
	statusOutput string
	statusPort   int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and authentication status",
	Long: `Display the current server status and the configured
authentication schemes.

The scheme table is computed from the local configuration; the server
state is probed via the health endpoint.

Examples:
  # Check status (uses the configured port)
  mcpserve status

  # Check status against a custom port
  mcpserve status --port 9080

  # Output as JSON
  mcpserve status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusPort, "port", 0, "Server port (default: webServer.port from config)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json)")
}

// ServerStatus is the probe result for the running server.
type ServerStatus struct {
	Running bool   `json:"running"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// SchemeStatus describes one authentication scheme from the local
// configuration.
type SchemeStatus struct {
	Scheme     string   `json:"scheme"`
	Configured bool     `json:"configured"`
	Problems   []string `json:"problems,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	port := statusPort
	if port == 0 {
		port = cfg.WebServer.Port
	}

	server := probeServer(port)
	schemes := schemeStatuses(cfg)

	if format == output.FormatJSON {
		return output.PrintJSON(os.Stdout, map[string]any{
			"server":      server,
			"authEnabled": cfg.WebServer.Auth.Enabled,
			"schemes":     schemes,
		})
	}

	if err := output.SimpleTable(os.Stdout, [][2]string{
		{"Server", server.Message},
		{"Auth", enabledString(cfg.WebServer.Auth.Enabled)},
	}); err != nil {
		return err
	}

	fmt.Println()
	table := output.NewTableData("Scheme", "Configured", "Problems")
	for _, s := range schemes {
		table.AddRow(s.Scheme, yesNo(s.Configured), strings.Join(s.Problems, "; "))
	}
	return output.PrintTable(os.Stdout, table)
}

// probeServer checks the health endpoint of a locally running server.
func probeServer(port int) ServerStatus {
	status := ServerStatus{Message: "Server is not running"}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.Running = true

	var health struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		status.Message = "Server is running but health response invalid"
		return status
	}

	if health.Status == "healthy" {
		status.Healthy = true
		status.Message = "Server is running and healthy"
	} else {
		status.Message = fmt.Sprintf("Server is running but unhealthy: %s", health.Error)
	}
	return status
}

// schemeStatuses classifies every known scheme from the configuration.
func schemeStatuses(cfg *config.Config) []SchemeStatus {
	detection := auth.Detect(cfg, false)

	out := make([]SchemeStatus, 0, len(auth.Schemes()))
	for _, s := range auth.Schemes() {
		out = append(out, SchemeStatus{
			Scheme:     string(s),
			Configured: detection.IsConfigured(s),
			Problems:   detection.Errors[s],
		})
	}
	return out
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
