package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit recorder.
type Metrics struct {
	RecordsWritten   *prometheus.CounterVec
	RecordsAnonymous *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
	RecordsRejected  *prometheus.CounterVec
	WriteFailures    prometheus.Counter
	WriteDuration    prometheus.Histogram
}

// New registers the audit recorder metrics on reg. Passing nil uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RecordsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_records_written_total",
			Help: "Total number of audit records persisted",
		}, []string{"auditable_type", "action"}),
		RecordsAnonymous: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_records_anonymous_total",
			Help: "Total number of audit records persisted without a principal",
		}, []string{"auditable_type"}),
		RecordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_records_skipped_total",
			Help: "Total number of mutations left unrecorded because no principal was available",
		}, []string{"auditable_type"}),
		RecordsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_records_rejected_total",
			Help: "Total number of mutations rejected because no principal was available",
		}, []string{"auditable_type"}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_write_failures_total",
			Help: "Total number of audit record persistence failures",
		}),
		WriteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audittrail_write_duration_seconds",
			Help:    "Time taken to persist an audit record",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncWritten(auditableType, action string) {
	m.RecordsWritten.WithLabelValues(auditableType, action).Inc()
}

func (m *Metrics) IncAnonymous(auditableType string) {
	m.RecordsAnonymous.WithLabelValues(auditableType).Inc()
}

func (m *Metrics) IncSkipped(auditableType string) {
	m.RecordsSkipped.WithLabelValues(auditableType).Inc()
}

func (m *Metrics) IncRejected(auditableType string) {
	m.RecordsRejected.WithLabelValues(auditableType).Inc()
}

func (m *Metrics) IncWriteFailures() {
	m.WriteFailures.Inc()
}

// ObserveWriteDuration records the store write latency.
func (m *Metrics) ObserveWriteDuration(durationSeconds float64) {
	m.WriteDuration.Observe(durationSeconds)
}
