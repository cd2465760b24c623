package probax

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics counts backend route attempts per capability, route and outcome.
// A nil *Metrics records nothing.
type Metrics struct {
	routeAttempts *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		routeAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "probax",
			Name:      "route_attempts_total",
			Help:      "Backend route attempts by capability, route and outcome.",
		}, []string{"capability", "route", "outcome"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "probax",
			Name:      "degraded_total",
			Help:      "Capabilities that ended with every route failing.",
		}, []string{"capability"}),
	}
}

func (m *Metrics) observeRoute(capability, route string, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	m.routeAttempts.WithLabelValues(capability, route, outcome).Inc()
}

func (m *Metrics) observeDegraded(capability string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(capability).Inc()
}
