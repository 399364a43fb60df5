package app

import (
	"github.com/aussiebroadwan/tollgate/internal/auth/service"
	"github.com/aussiebroadwan/tollgate/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tollgate_auth"

// Metrics holds the auth service's prometheus collectors. It doubles as the
// AuthService observer.
type Metrics struct {
	Registry *prometheus.Registry
	HTTP     *metrics.HTTP

	IssuedTotal          *prometheus.CounterVec
	LoginFailuresTotal   prometheus.Counter
	RefreshRejectedTotal *prometheus.CounterVec
	SweptTotal           prometheus.Counter
}

var _ service.Observer = (*Metrics)(nil)

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := metrics.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTP:     metrics.NewHTTP(reg, metricsNamespace),
		IssuedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of token pairs issued, by reason",
		}, []string{"reason"}),
		LoginFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "login_failures_total",
			Help:      "Total number of rejected login attempts",
		}),
		RefreshRejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "refresh_rejected_total",
			Help:      "Total number of rejected refresh attempts, by reason",
		}, []string{"reason"}),
		SweptTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "refresh_tokens_swept_total",
			Help:      "Total number of expired or revoked refresh tokens deleted by housekeeping",
		}),
	}
}

func (m *Metrics) TokensIssued(reason string) {
	m.IssuedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) LoginFailed() {
	m.LoginFailuresTotal.Inc()
}

func (m *Metrics) RefreshRejected(reason string) {
	m.RefreshRejectedTotal.WithLabelValues(reason).Inc()
}

// ObserveSweep is installed as the housekeeping OnSweep hook.
func (m *Metrics) ObserveSweep(deleted int64) {
	m.SweptTotal.Add(float64(deleted))
}
