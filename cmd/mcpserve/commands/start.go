package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/logger"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/api"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth/ntlm"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/mcpserver"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/metrics"
	promMetrics "github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/metrics/prometheus"
)

// ntlmSessionGaugeInterval is how often the live session count is pushed
// to the metrics gauge.
const ntlmSessionGaugeInterval = 30 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the MCP server",
	Long: `Start the MCP server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/mcpserve/config.yaml.

Examples:
  # Start with default config location
  mcpserve start

  # Start with custom config file
  mcpserve start --config /etc/mcpserve/config.yaml

  # Start with environment variable overrides
  MCPSERVE_LOGGING_LEVEL=DEBUG mcpserve start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting mcpserve",
		"version", Version,
		"service", cfg.Name,
		"port", cfg.WebServer.Port,
	)

	var metricsHandler http.Handler
	var authMetrics metrics.AuthMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		authMetrics = promMetrics.NewAuthMetrics()
		metricsHandler = promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
		logger.Info("metrics enabled")
	} else {
		logger.Info("metrics collection disabled")
	}

	detection := auth.Detect(cfg, false)
	logSchemes(cfg, detection)

	mcpSrv := mcpserver.New(cfg.Name)
	exempt := auth.NewExemptionTable(mcpSrv.ExemptEntries()...)

	dispatcherOpts := []auth.DispatcherOption{auth.WithExemptions(exempt)}
	adminOpts := []auth.AdminOption{}

	var negotiator *ntlm.Negotiator
	if len(cfg.AD.Domains) > 0 {
		negotiator = ntlm.NewNegotiator(&cfg.AD)
		dispatcherOpts = append(dispatcherOpts, auth.WithNTLM(negotiator))
		adminOpts = append(adminOpts, auth.WithAdminNTLM(negotiator))
		logger.Info("ntlm negotiation enabled", "domains", len(cfg.AD.Domains))
	}

	dispatcher := auth.NewDispatcher(cfg, dispatcherOpts...)

	adminSelector, err := auth.NewAdminSelector(cfg, adminOpts...)
	if err != nil {
		return err
	}

	if negotiator != nil && authMetrics != nil {
		go watchNTLMSessions(ctx, negotiator.Sessions(), authMetrics)
	}

	server := api.NewServer(cfg, api.Deps{
		Dispatcher:     dispatcher,
		AdminSelector:  adminSelector,
		Detection:      detection,
		MCPHandler:     mcpSrv.HTTPHandler(),
		TokenCodec:     auth.NewTokenCodec(cfg.WebServer.Auth.JWTToken.EncryptKey),
		AuthMetrics:    authMetrics,
		MetricsHandler: metricsHandler,
	})

	return server.Start(ctx)
}

// logSchemes reports the startup scheme detection so that a misconfigured
// scheme is visible in the log instead of surfacing as unexplained 401s.
func logSchemes(cfg *config.Config, d *auth.Detection) {
	if !cfg.WebServer.Auth.Enabled {
		logger.Warn("authentication is disabled, all requests pass")
		return
	}

	schemes := make([]string, 0, len(d.Configured))
	for _, s := range d.Configured {
		schemes = append(schemes, string(s))
	}
	logger.Info("authentication enabled", "schemes", schemes)

	for scheme, errs := range d.Errors {
		for _, msg := range errs {
			logger.Warn("scheme not usable", "scheme", string(scheme), "reason", msg)
		}
	}
}

// watchNTLMSessions pushes the live NTLM session count to the gauge until
// the context is cancelled.
func watchNTLMSessions(ctx context.Context, store *ntlm.SessionStore, m metrics.AuthMetrics) {
	ticker := time.NewTicker(ntlmSessionGaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetNTLMSessions(store.Len())
		}
	}
}
