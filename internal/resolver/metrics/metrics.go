package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Metrics holds Prometheus metrics for domain resolution.
type Metrics struct {
	ProviderCalls    *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	Resolutions      *prometheus.CounterVec
	BreakerOpenTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emailscore_resolver_provider_calls_total",
			Help: "Provider attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emailscore_resolver_provider_duration_seconds",
			Help:    "Provider call latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"provider"}),
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emailscore_resolver_resolutions_total",
			Help: "Completed resolutions by resulting domain status",
		}, []string{"status"}),
		BreakerOpenTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emailscore_resolver_breaker_opened_total",
			Help: "Times a provider circuit breaker opened",
		}, []string{"provider"}),
	}
}

func (m *Metrics) ObserveProvider(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeSkipped {
		m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementResolution(status string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementBreakerOpened(provider string) {
	if m == nil {
		return
	}
	m.BreakerOpenTotal.WithLabelValues(provider).Inc()
}
