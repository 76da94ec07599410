package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instrumentation counters for the pipeline.
type Metrics struct {
	DocumentsScanned   prometheus.Counter
	DocumentsPersisted prometheus.Counter
	DocumentsSkipped   prometheus.Counter
	DocumentsFailed    prometheus.Counter
	BatchesCommitted   prometheus.Counter
	WorkerCrashes      prometheus.Counter
}

// NewMetrics creates pipeline metrics registered with reg.
// A nil registerer yields unregistered (but still usable) counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docdex",
			Subsystem: "ingest",
			Name:      "documents_scanned_total",
			Help:      "Number of documents discovered by the corpus scanner.",
		}),
		DocumentsPersisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docdex",
			Subsystem: "ingest",
			Name:      "documents_persisted_total",
			Help:      "Number of documents durably committed to the store.",
		}),
		DocumentsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docdex",
			Subsystem: "ingest",
			Name:      "documents_skipped_total",
			Help:      "Number of documents skipped because they were already persisted.",
		}),
		DocumentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docdex",
			Subsystem: "ingest",
			Name:      "documents_failed_total",
			Help:      "Number of documents that failed a pipeline stage.",
		}),
		BatchesCommitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docdex",
			Subsystem: "ingest",
			Name:      "batches_committed_total",
			Help:      "Number of embedding batches committed to the store.",
		}),
		WorkerCrashes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docdex",
			Subsystem: "ingest",
			Name:      "worker_crashes_total",
			Help:      "Number of recognition worker crashes recovered from.",
		}),
	}
}
