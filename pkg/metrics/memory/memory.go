package memory

import (
	"sync"
	"time"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics"
)

// MemoryCollector implements metrics.Collector for in-memory testing.
type MemoryCollector struct {
	mu sync.RWMutex

	// Service-level metrics, keyed by operation
	operations map[string]*OperationMetrics

	// Per-store metrics
	storeMetrics map[string]*StoreMetrics
}

// OperationMetrics holds metrics for a single service operation.
type OperationMetrics struct {
	Calls     int64
	ByOutcome map[string]int64
	Latencies []time.Duration
}

// StoreMetrics holds metrics for a single store backend.
type StoreMetrics struct {
	Ops    map[string]int64
	Errors map[string]int64

	CircuitState metrics.CircuitState
	CircuitOpens int64

	FilterRejections int64

	Latencies []time.Duration
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		operations:   make(map[string]*OperationMetrics),
		storeMetrics: make(map[string]*StoreMetrics),
	}
}

func (mc *MemoryCollector) getOrCreateOperation(op string) *OperationMetrics {
	if _, exists := mc.operations[op]; !exists {
		mc.operations[op] = &OperationMetrics{
			ByOutcome: make(map[string]int64),
		}
	}
	return mc.operations[op]
}

func (mc *MemoryCollector) getOrCreateStore(store string) *StoreMetrics {
	if _, exists := mc.storeMetrics[store]; !exists {
		mc.storeMetrics[store] = &StoreMetrics{
			Ops:    make(map[string]int64),
			Errors: make(map[string]int64),
		}
	}
	return mc.storeMetrics[store]
}

// RecordOperation records a service-level operation and its outcome.
func (mc *MemoryCollector) RecordOperation(op, outcome string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	om := mc.getOrCreateOperation(op)
	om.Calls++
	om.ByOutcome[outcome]++
	om.Latencies = append(om.Latencies, duration)
}

// RecordStoreOp records a store-level operation.
func (mc *MemoryCollector) RecordStoreOp(store, op string, success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.getOrCreateStore(store)
	sm.Ops[op]++
	if !success {
		sm.Errors[op]++
	}
	sm.Latencies = append(sm.Latencies, duration)
}

// RecordCircuitState records the current circuit breaker state for a store.
func (mc *MemoryCollector) RecordCircuitState(store string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.getOrCreateStore(store)
	oldState := sm.CircuitState
	sm.CircuitState = state

	// Count transitions to open
	if oldState != metrics.CircuitOpen && state == metrics.CircuitOpen {
		sm.CircuitOpens++
	}
}

// RecordFilterRejection records a lookup answered by the owner filter.
func (mc *MemoryCollector) RecordFilterRejection(store string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	sm := mc.getOrCreateStore(store)
	sm.FilterRejections++
}

// Snapshot is a copy of the current metrics state.
type Snapshot struct {
	Operations   map[string]OperationMetrics
	StoreMetrics map[string]StoreMetrics
}

// Snapshot returns a copy of the current metrics state.
func (mc *MemoryCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := Snapshot{
		Operations:   make(map[string]OperationMetrics),
		StoreMetrics: make(map[string]StoreMetrics),
	}
	for op, om := range mc.operations {
		snapshot.Operations[op] = *om
	}
	for store, sm := range mc.storeMetrics {
		snapshot.StoreMetrics[store] = *sm
	}
	return snapshot
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.operations = make(map[string]*OperationMetrics)
	mc.storeMetrics = make(map[string]*StoreMetrics)
}

// GetOperationMetrics returns the metrics for a specific operation.
func (mc *MemoryCollector) GetOperationMetrics(op string) *OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if om, exists := mc.operations[op]; exists {
		copy := *om
		return &copy
	}
	return nil
}

// GetStoreMetrics returns the metrics for a specific store.
func (mc *MemoryCollector) GetStoreMetrics(store string) *StoreMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if sm, exists := mc.storeMetrics[store]; exists {
		copy := *sm
		return &copy
	}
	return nil
}

var _ metrics.Collector = (*MemoryCollector)(nil)
