// Package metrics registers the service's Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters incremented by the API layer.
type Metrics struct {
	Uploads      *prometheus.CounterVec
	Imports      prometheus.Counter
	Exports      prometheus.Counter
	UnitsCleared prometheus.Counter
	Requests     *prometheus.HistogramVec
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "partystat_uploads_total",
			Help: "Detail uploads ingested, by spreadsheet category code",
		}, []string{"category"}),
		Imports: factory.NewCounter(prometheus.CounterOpts{
			Name: "partystat_imports_total",
			Help: "Consolidated report imports applied",
		}),
		Exports: factory.NewCounter(prometheus.CounterOpts{
			Name: "partystat_exports_total",
			Help: "Consolidated report exports served",
		}),
		UnitsCleared: factory.NewCounter(prometheus.CounterOpts{
			Name: "partystat_units_cleared_total",
			Help: "Per-unit data purges",
		}),
		Requests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "partystat_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
}

// ObserveUpload records one ingested upload for a category code.
func (m *Metrics) ObserveUpload(category int) {
	m.Uploads.WithLabelValues(strconv.Itoa(category)).Inc()
}
