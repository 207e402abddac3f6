package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Deducted     prometheus.Counter
	Insufficient prometheus.Counter
	Granted      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Deducted: f.NewCounter(prometheus.CounterOpts{
			Name: "emailscore_credits_deducted_total",
			Help: "Credits consumed by verifications",
		}),
		Insufficient: f.NewCounter(prometheus.CounterOpts{
			Name: "emailscore_credits_insufficient_total",
			Help: "Requests rejected for insufficient credits",
		}),
		Granted: f.NewCounter(prometheus.CounterOpts{
			Name: "emailscore_credits_granted_total",
			Help: "Credits added to workspaces",
		}),
	}
}

func (m *Metrics) AddDeducted(n int64) {
	if m == nil {
		return
	}
	m.Deducted.Add(float64(n))
}

func (m *Metrics) IncrementInsufficient() {
	if m == nil {
		return
	}
	m.Insufficient.Inc()
}

func (m *Metrics) AddGranted(n int64) {
	if m == nil {
		return
	}
	m.Granted.Add(float64(n))
}
