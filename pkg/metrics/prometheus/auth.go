package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/metrics"
)

// authMetrics is the Prometheus implementation of metrics.AuthMetrics.
type authMetrics struct {
	attempts     *prometheus.CounterVec
	exempt       prometheus.Counter
	ntlmSessions prometheus.Gauge
}

// NewAuthMetrics creates a Prometheus-backed auth metrics recorder.
//
// Returns nil if metrics are not enabled (InitRegistry not called); a nil
// recorder is safe to use and records nothing.
func NewAuthMetrics() *authMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &authMetrics{
		attempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpserve_auth_attempts_total",
				Help: "Authentication attempts by scheme and result",
			},
			[]string{"scheme", "result"}, // result: "success", "failure"
		),
		exempt: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mcpserve_auth_exempt_total",
				Help: "Requests that bypassed authentication via the exemption table",
			},
		),
		ntlmSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpserve_ntlm_sessions",
				Help: "Live NTLM sessions",
			},
		),
	}
}

// RecordAttempt counts one authentication attempt for a scheme.
func (m *authMetrics) RecordAttempt(scheme string, success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.attempts.WithLabelValues(scheme, result).Inc()
}

// RecordExempt counts a request that bypassed authentication.
func (m *authMetrics) RecordExempt() {
	if m == nil {
		return
	}
	m.exempt.Inc()
}

// SetNTLMSessions updates the live session gauge.
func (m *authMetrics) SetNTLMSessions(n int) {
	if m == nil {
		return
	}
	m.ntlmSessions.Set(float64(n))
}
