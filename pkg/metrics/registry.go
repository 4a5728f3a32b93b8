// Package metrics holds the metrics registry and the interfaces the rest
// of the server records against. Implementations live in the prometheus
// sub-package; when metrics are disabled every recorder is a nil no-op.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide Prometheus registry. Recorders
// created before InitRegistry are permanent no-ops.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}

// GetRegistry returns the registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return registry != nil
}

// AuthMetrics records authentication outcomes and session state.
type AuthMetrics interface {
	RecordAttempt(scheme string, success bool)
	RecordExempt()
	SetNTLMSessions(n int)
}
