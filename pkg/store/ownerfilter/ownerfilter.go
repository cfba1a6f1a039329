// Package ownerfilter adds probabilistic owner-membership testing in front
// of a ledger store. An owner that has never recorded a transaction is,
// per the ledger contract, a zero balance with an empty history, so the
// filter can answer those lookups without touching the durable medium.
// False positives simply fall through to the store.
package ownerfilter

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/shopspring/decimal"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics"
)

// Store wraps a ledger store with an owner bloom filter.
type Store struct {
	inner   ledger.Store
	filter  *bloom.BloomFilter
	mu      sync.RWMutex
	metrics metrics.Collector

	totalLookups   uint64
	filterRejected uint64
}

// New creates an owner-filter wrapper and warms it with the owners already
// persisted in the wrapped store. Missing an existing owner would wrongly
// report a zero balance, so warm-up failure is fatal.
func New(ctx context.Context, inner ledger.Store, expectedOwners uint, falsePositiveRate float64, collector metrics.Collector) (*Store, error) {
	if expectedOwners == 0 {
		expectedOwners = 10000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	owners, err := inner.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("ownerfilter: warm up: %w", err)
	}

	filter := bloom.NewWithEstimates(expectedOwners, falsePositiveRate)
	for _, owner := range owners {
		filter.Add([]byte(owner))
	}

	return &Store{
		inner:   inner,
		filter:  filter,
		metrics: collector,
	}, nil
}

// mayExist tests the filter and counts the lookup.
func (s *Store) mayExist(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalLookups++
	if s.filter.Test([]byte(owner)) {
		return true
	}
	s.filterRejected++
	return false
}

// Append delegates to the wrapped store and registers the owner on success.
func (s *Store) Append(ctx context.Context, owner string, kind ledger.Kind, amount decimal.Decimal) (ledger.Transaction, decimal.Decimal, error) {
	tx, balance, err := s.inner.Append(ctx, owner, kind, amount)
	if err != nil {
		return ledger.Transaction{}, decimal.Zero, err
	}

	s.mu.Lock()
	s.filter.Add([]byte(owner))
	s.mu.Unlock()

	return tx, balance, nil
}

// CurrentBalance short-circuits to zero for owners the filter has never seen.
func (s *Store) CurrentBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	if !s.mayExist(owner) {
		s.metrics.RecordFilterRejection(s.inner.Name())
		return decimal.Zero, nil
	}
	return s.inner.CurrentBalance(ctx, owner)
}

// History short-circuits to empty for owners the filter has never seen.
func (s *Store) History(ctx context.Context, owner string) ([]ledger.Transaction, error) {
	if !s.mayExist(owner) {
		s.metrics.RecordFilterRejection(s.inner.Name())
		return []ledger.Transaction{}, nil
	}
	return s.inner.History(ctx, owner)
}

// DeleteTransaction short-circuits to NotFound for owners the filter has
// never seen; an unknown owner cannot hold the target transaction.
func (s *Store) DeleteTransaction(ctx context.Context, owner string, id int64) (decimal.Decimal, error) {
	if !s.mayExist(owner) {
		s.metrics.RecordFilterRejection(s.inner.Name())
		return decimal.Zero, ledger.ErrTransactionNotFound
	}
	return s.inner.DeleteTransaction(ctx, owner, id)
}

// Owners delegates to the wrapped store.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	return s.inner.Owners(ctx)
}

// Name returns the wrapped store's identifier.
func (s *Store) Name() string {
	return s.inner.Name()
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	return s.inner.Close()
}

// Stats holds statistics about filter effectiveness.
type Stats struct {
	TotalLookups   uint64
	FilterRejected uint64
	RejectionRate  float64
}

// Stats returns statistics about filter effectiveness.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rate := 0.0
	if s.totalLookups > 0 {
		rate = float64(s.filterRejected) / float64(s.totalLookups)
	}
	return Stats{
		TotalLookups:   s.totalLookups,
		FilterRejected: s.filterRejected,
		RejectionRate:  rate,
	}
}

var _ ledger.Store = (*Store)(nil)
