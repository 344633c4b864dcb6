package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared across the subject
// lifecycle services. Per-package hot-path metrics live next to their code.
type Metrics struct {
	OperationsTotal    *prometheus.CounterVec
	AnchorsTotal       *prometheus.CounterVec
	SyncFailuresLogged prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on the given registerer; tests pass a fresh registry so
// repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attesto_subject_operations_total",
			Help: "Subject lifecycle operations by type and outcome",
		}, []string{"operation", "outcome"}),
		AnchorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attesto_ledger_anchors_total",
			Help: "Anchor/unanchor attempts against the external ledger by action and result",
		}, []string{"action", "result"}),
		SyncFailuresLogged: factory.NewCounter(prometheus.CounterOpts{
			Name: "attesto_sync_failures_logged_total",
			Help: "Ledger commands queued for background retry",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attesto_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}
