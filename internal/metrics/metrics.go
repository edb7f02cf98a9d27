package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/campbellstack/campbell-engine/internal/models"
)

const (
	// OutcomeSuccess labels ingestions that produced a dataset.
	OutcomeSuccess = "success"
	// OutcomeError labels ingestions that failed outright.
	OutcomeError = "error"
)

var (
	ingestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campbell",
			Name:      "ingests_total",
			Help:      "Total number of ingestion runs, partitioned by tool family and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	ingestDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "campbell",
			Name:      "ingest_seconds",
			Help:      "Ingestion run latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	diagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campbell",
			Name:      "diagnostics_total",
			Help:      "Total number of ingestion diagnostics, partitioned by kind.",
		},
		[]string{"kind"},
	)
)

// Register attaches the engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ingestsTotal,
		ingestDurationSeconds,
		diagnosticsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIngest records one ingestion run: duration, outcome and the
// diagnostics it produced.
func ObserveIngest(tool models.ToolFamily, duration time.Duration, outcome string, diags models.Diagnostics) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	ingestsTotal.WithLabelValues(string(tool), label).Inc()
	if duration < 0 {
		duration = 0
	}
	ingestDurationSeconds.Observe(duration.Seconds())
	for _, diag := range diags {
		diagnosticsTotal.WithLabelValues(string(diag.Kind)).Inc()
	}
}
