package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics"
)

// PrometheusCollector implements metrics.Collector for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Service-level counters
	operations *prometheus.CounterVec

	// Store-level counters
	storeOps    *prometheus.CounterVec
	storeErrors *prometheus.CounterVec

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// Owner filter
	filterRejections *prometheus.CounterVec

	// Histograms
	operationLatency *prometheus.HistogramVec
	storeLatency     *prometheus.HistogramVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	pc := &PrometheusCollector{
		namespace: namespace,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Total number of ledger operations per operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		storeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations per backend",
			},
			[]string{"store", "operation"},
		),
		storeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of store errors per backend and operation",
			},
			[]string{"store", "operation"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens per store",
			},
			[]string{"store"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state per store (0=closed, 1=open, 2=half-open)",
			},
			[]string{"store"},
		),
		filterRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filter_rejections_total",
				Help:      "Total number of lookups answered by the owner filter per store",
			},
			[]string{"store"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to ~3s
			},
			[]string{"operation"},
		),
		storeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Store operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15),
			},
			[]string{"store", "operation"},
		),
	}

	return pc
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		pc.operations,
		pc.storeOps,
		pc.storeErrors,
		pc.circuitOpens,
		pc.circuitState,
		pc.filterRejections,
		pc.operationLatency,
		pc.storeLatency,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordOperation records a service-level operation and its outcome.
func (pc *PrometheusCollector) RecordOperation(op, outcome string, duration time.Duration) {
	pc.operations.WithLabelValues(op, outcome).Inc()
	pc.operationLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordStoreOp records a store-level operation.
func (pc *PrometheusCollector) RecordStoreOp(store, op string, success bool, duration time.Duration) {
	pc.storeOps.WithLabelValues(store, op).Inc()
	if !success {
		pc.storeErrors.WithLabelValues(store, op).Inc()
	}
	pc.storeLatency.WithLabelValues(store, op).Observe(duration.Seconds())
}

// RecordCircuitState records the current circuit breaker state.
func (pc *PrometheusCollector) RecordCircuitState(store string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(store).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(store).Inc()
	}
}

// RecordFilterRejection records a lookup answered by the owner filter.
func (pc *PrometheusCollector) RecordFilterRejection(store string) {
	pc.filterRejections.WithLabelValues(store).Inc()
}

var _ metrics.Collector = (*PrometheusCollector)(nil)
