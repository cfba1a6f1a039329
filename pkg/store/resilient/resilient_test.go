package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
	metricsmem "github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics/memory"
)

// flakyStore is a controllable fake for breaker behavior tests.
type flakyStore struct {
	err   error
	calls int
	delay time.Duration
}

func (f *flakyStore) do(ctx context.Context) error {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *flakyStore) Append(ctx context.Context, owner string, kind ledger.Kind, amount decimal.Decimal) (ledger.Transaction, decimal.Decimal, error) {
	if err := f.do(ctx); err != nil {
		return ledger.Transaction{}, decimal.Zero, err
	}
	return ledger.Transaction{ID: 1, Owner: owner, Kind: kind, Amount: amount}, amount, nil
}

func (f *flakyStore) CurrentBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	if err := f.do(ctx); err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, nil
}

func (f *flakyStore) History(ctx context.Context, owner string) ([]ledger.Transaction, error) {
	if err := f.do(ctx); err != nil {
		return nil, err
	}
	return []ledger.Transaction{}, nil
}

func (f *flakyStore) DeleteTransaction(ctx context.Context, owner string, id int64) (decimal.Decimal, error) {
	if err := f.do(ctx); err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, nil
}

func (f *flakyStore) Owners(ctx context.Context) ([]string, error) {
	if err := f.do(ctx); err != nil {
		return nil, err
	}
	return []string{}, nil
}

func (f *flakyStore) Name() string { return "flaky" }
func (f *flakyStore) Close() error { return nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	cfg.CircuitBreaker.ReadyToTrip = func(counts Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return cfg
}

func TestResilientStore_Passthrough(t *testing.T) {
	inner := &flakyStore{}
	store := New(inner, testConfig())
	ctx := context.Background()

	tx, balance, err := store.Append(ctx, "alice", ledger.KindIncome, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if tx.ID != 1 || !balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Append result = %+v, %s", tx, balance)
	}
	if _, err := store.CurrentBalance(ctx, "alice"); err != nil {
		t.Errorf("CurrentBalance failed: %v", err)
	}
	if store.Name() != "flaky" {
		t.Errorf("Name = %q, want flaky", store.Name())
	}
}

func TestResilientStore_BreakerOpensOnFailures(t *testing.T) {
	inner := &flakyStore{err: errors.New("connection refused")}
	store := New(inner, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.CurrentBalance(ctx, "alice"); err == nil {
			t.Fatal("expected failure")
		}
	}
	callsBefore := inner.calls

	// The open breaker rejects without touching the inner store
	_, err := store.CurrentBalance(ctx, "alice")
	if !ledger.IsStorageFailure(err) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	if inner.calls != callsBefore {
		t.Errorf("inner store was called %d times while open, want 0", inner.calls-callsBefore)
	}
}

func TestResilientStore_NotFoundDoesNotTrip(t *testing.T) {
	inner := &flakyStore{err: ledger.ErrTransactionNotFound}
	store := New(inner, testConfig())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := store.DeleteTransaction(ctx, "alice", 1); !ledger.IsNotFound(err) {
			t.Fatalf("err = %v, want ErrTransactionNotFound", err)
		}
	}

	// Every call reached the inner store; the breaker never opened
	if inner.calls != 10 {
		t.Errorf("inner store saw %d calls, want 10", inner.calls)
	}
}

func TestResilientStore_Timeout(t *testing.T) {
	inner := &flakyStore{delay: 200 * time.Millisecond}
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	store := New(inner, cfg)

	_, err := store.CurrentBalance(context.Background(), "alice")
	if !ledger.IsStorageFailure(err) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
}

func TestResilientStore_RecordsMetrics(t *testing.T) {
	collector := metricsmem.NewMemoryCollector()
	inner := &flakyStore{}
	store := NewWithMetrics(inner, testConfig(), collector)

	if _, err := store.CurrentBalance(context.Background(), "alice"); err != nil {
		t.Fatalf("CurrentBalance failed: %v", err)
	}

	sm := collector.GetStoreMetrics("flaky")
	if sm == nil || sm.Ops["balance"] != 1 {
		t.Errorf("store metrics = %+v, want one balance op", sm)
	}
}
