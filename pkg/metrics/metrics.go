package metrics

import (
	"time"
)

// Collector defines the interface for collecting ledger metrics.
// Implementations can export metrics to various backends (Prometheus, in-memory for tests).
type Collector interface {
	// Service-level operations (credit, debit, history, balance, delete, summary).
	// Outcome is an error class from ledger.ClassifyError ("none" on success).
	RecordOperation(op string, outcome string, duration time.Duration)

	// Store-level operations, labelled by store implementation.
	RecordStoreOp(store string, op string, success bool, duration time.Duration)

	// Circuit breaker state of a wrapped store.
	RecordCircuitState(store string, state CircuitState)

	// Owner-filter effectiveness: a lookup answered without touching the store.
	RecordFilterRejection(store string)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the store has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of Collector.
// It's used as the default collector when metrics are not needed.
type NoOpCollector struct{}

// RecordOperation does nothing.
func (NoOpCollector) RecordOperation(op string, outcome string, duration time.Duration) {}

// RecordStoreOp does nothing.
func (NoOpCollector) RecordStoreOp(store string, op string, success bool, duration time.Duration) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(store string, state CircuitState) {}

// RecordFilterRejection does nothing.
func (NoOpCollector) RecordFilterRejection(store string) {}
