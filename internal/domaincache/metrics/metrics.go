package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Lookups       *prometheus.CounterVec
	WriteFailures prometheus.Counter
	Refreshed     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emailscore_domain_cache_lookups_total",
			Help: "Domain cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		WriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "emailscore_domain_cache_write_failures_total",
			Help: "Domain cache upserts that failed and were skipped",
		}),
		Refreshed: f.NewCounter(prometheus.CounterOpts{
			Name: "emailscore_domain_cache_refreshed_total",
			Help: "Stale domain cache entries re-resolved by the refresher",
		}),
	}
}

func (m *Metrics) IncrementHit(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Lookups.WithLabelValues("hit").Add(float64(n))
}

func (m *Metrics) IncrementMiss(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Lookups.WithLabelValues("miss").Add(float64(n))
}

func (m *Metrics) IncrementError() {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues("error").Inc()
}

func (m *Metrics) IncrementWriteFailure() {
	if m == nil {
		return
	}
	m.WriteFailures.Inc()
}

func (m *Metrics) IncrementRefreshed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Refreshed.Add(float64(n))
}
