package http

import (
	"net/http"

	"github.com/aussiebroadwan/portal/internal/portal/authz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus metrics. A nil *Metrics records
// nothing.
type Metrics struct {
	AuthzDecisions *prometheus.CounterVec
	LoginAttempts  *prometheus.CounterVec
	UpstreamUp     prometheus.Gauge

	reg *prometheus.Registry
}

// NewMetrics creates a registry with the runtime collectors and the gateway
// metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		AuthzDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portal",
				Name:      "authz_decisions_total",
				Help:      "Route authorization decisions",
			},
			[]string{"group", "outcome", "reason"},
		),
		LoginAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portal",
				Name:      "login_attempts_total",
				Help:      "Credential exchanges by result (success or error code)",
			},
			[]string{"result"},
		),
		UpstreamUp: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "portal",
				Name:      "identity_up",
				Help:      "1 when the last identity service probe succeeded",
			},
		),
		reg: reg,
	}
}

// RecordDecision implements authz.Recorder.
func (m *Metrics) RecordDecision(d authz.Decision) {
	if m == nil {
		return
	}
	group := d.Group
	if group == "" {
		group = "none"
	}
	m.AuthzDecisions.WithLabelValues(group, d.Outcome.String(), d.Reason).Inc()
}

func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveUpstream is an UpstreamProbe observer.
func (m *Metrics) ObserveUpstream(healthy bool) {
	if m == nil {
		return
	}
	if healthy {
		m.UpstreamUp.Set(1)
	} else {
		m.UpstreamUp.Set(0)
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
