package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submitted     prometheus.Counter
	Finished      *prometheus.CounterVec
	Records       *prometheus.CounterVec
	ChunkFailures prometheus.Counter
	JobDuration   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submitted: f.NewCounter(prometheus.CounterOpts{
			Name: "emailscore_bulk_lists_submitted_total",
			Help: "Bulk lists accepted for processing",
		}),
		Finished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emailscore_bulk_lists_finished_total",
			Help: "Bulk lists that reached a terminal status",
		}, []string{"status"}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "emailscore_bulk_records_total",
			Help: "Bulk records verified, by verdict",
		}, []string{"status"}),
		ChunkFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "emailscore_bulk_chunk_persist_failures_total",
			Help: "Chunks whose results could not be stored",
		}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "emailscore_bulk_job_duration_seconds",
			Help:    "Wall time of bulk job runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	if m == nil {
		return
	}
	m.Submitted.Inc()
}

func (m *Metrics) IncrementFinished(status string) {
	if m == nil {
		return
	}
	m.Finished.WithLabelValues(status).Inc()
}

func (m *Metrics) AddRecords(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Records.WithLabelValues(status).Add(float64(n))
}

func (m *Metrics) IncrementChunkFailure() {
	if m == nil {
		return
	}
	m.ChunkFailures.Inc()
}

func (m *Metrics) ObserveJobDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.JobDuration.Observe(d.Seconds())
}
