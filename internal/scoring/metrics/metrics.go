package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Verifications *prometheus.CounterVec
	LiveLookups   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emailscore_verifications_total",
			Help: "Scored addresses by resulting status",
		}, []string{"status"}),
		LiveLookups: f.NewCounter(prometheus.CounterOpts{
			Name: "emailscore_live_domain_lookups_total",
			Help: "Domain resolutions that missed the cache",
		}),
	}
}

func (m *Metrics) IncrementVerification(status string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementLiveLookup() {
	if m == nil {
		return
	}
	m.LiveLookups.Inc()
}
