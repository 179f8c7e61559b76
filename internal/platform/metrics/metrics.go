// Package metrics builds the Prometheus registry served on /metrics.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "audittrail"

// NewRegistry returns a registry with Go runtime, process and build collectors.
// Component metrics register on it through their own constructors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		collectors.NewBuildInfoCollector(),
	)
	return reg
}

// RegisterDB exposes connection pool statistics for db. A nil db is ignored.
func RegisterDB(reg prometheus.Registerer, db *sql.DB) error {
	if db == nil {
		return nil
	}
	return reg.Register(collectors.NewDBStatsCollector(db, namespace))
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
