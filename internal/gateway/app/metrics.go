package app

import (
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tollgate_gateway"

// Metrics holds the gateway's prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry
	HTTP     *metrics.HTTP

	Decisions   *prometheus.CounterVec
	JWKSFetches *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := metrics.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTP:     metrics.NewHTTP(reg, metricsNamespace),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_decisions_total",
			Help:      "Total number of authentication decisions, by outcome",
		}, []string{"outcome"}),
		JWKSFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jwks_fetches_total",
			Help:      "Total number of JWKS fetch attempts, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveDecision(outcome string) {
	m.Decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetch(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.JWKSFetches.WithLabelValues(result).Inc()
}

// chiRoute labels requests with the chi route pattern, e.g. "/*" for
// proxied traffic.
func chiRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
