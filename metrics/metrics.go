// Package metrics holds the node's Prometheus collectors. Each Metrics owns
// its own registry so several nodes (or tests) can live in one process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "herbchain"

type Metrics struct {
	Registry *prometheus.Registry

	blocksAppended     *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	referenceFailures  *prometheus.CounterVec
	idCollisions       prometheus.Counter
	foldFailures       prometheus.Counter
	verifyRuns         *prometheus.CounterVec
	chainHeight        prometheus.Gauge
	batches            prometheus.Gauge
	products           prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		blocksAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "blocks_appended_total",
			Help:      "Blocks appended, by transaction kind",
		}, []string{"kind"}),

		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trace",
			Name:      "validation_failures_total",
			Help:      "Submissions rejected by field validation",
		}, []string{"kind"}),

		referenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trace",
			Name:      "reference_failures_total",
			Help:      "Submissions naming an unknown batch",
		}, []string{"kind"}),

		idCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "id_collisions_total",
			Help:      "Block id prefix collisions detected at commit, including retried ones",
		}),

		foldFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "fold_failures_total",
			Help:      "Projection rebuilds aborted by a bad block",
		}),

		verifyRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "verify_runs_total",
			Help:      "Chain verifications, by result",
		}, []string{"result"}), // result: valid/invalid

		chainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "height",
			Help:      "Number of blocks, genesis included",
		}),

		batches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "batches",
			Help:      "Known herb batches",
		}),

		products: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "products",
			Help:      "Known final products",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.blocksAppended,
		m.validationFailures,
		m.referenceFailures,
		m.idCollisions,
		m.foldFailures,
		m.verifyRuns,
		m.chainHeight,
		m.batches,
		m.products,
	)
	return m
}

// All recorders accept a nil receiver so callers can run without metrics.

func (m *Metrics) BlockAppended(kind string, height int) {
	if m == nil {
		return
	}
	m.blocksAppended.WithLabelValues(kind).Inc()
	m.chainHeight.Set(float64(height))
}

func (m *Metrics) ValidationFailed(kind string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ReferenceFailed(kind string) {
	if m == nil {
		return
	}
	m.referenceFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) IDCollision() {
	if m == nil {
		return
	}
	m.idCollisions.Inc()
}

func (m *Metrics) FoldFailed() {
	if m == nil {
		return
	}
	m.foldFailures.Inc()
}

func (m *Metrics) Verified(ok bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !ok {
		result = "invalid"
	}
	m.verifyRuns.WithLabelValues(result).Inc()
}

// Projection records the projection's size after a fold or apply.
func (m *Metrics) Projection(height, batches, products int) {
	if m == nil {
		return
	}
	m.chainHeight.Set(float64(height))
	m.batches.Set(float64(batches))
	m.products.Set(float64(products))
}
