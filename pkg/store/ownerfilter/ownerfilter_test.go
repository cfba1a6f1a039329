package ownerfilter

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics"
	metricsmem "github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics/memory"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/memory"
)

func newFiltered(t *testing.T, inner ledger.Store, collector metrics.Collector) *Store {
	t.Helper()

	store, err := New(context.Background(), inner, 1000, 0.01, collector)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return store
}

func TestOwnerFilter_ShortCircuitsUnknownOwners(t *testing.T) {
	inner, err := memory.New(memory.Config{})
	if err != nil {
		t.Fatalf("memory.New failed: %v", err)
	}
	collector := metricsmem.NewMemoryCollector()
	store := newFiltered(t, inner, collector)
	defer store.Close()

	ctx := context.Background()

	balance, err := store.CurrentBalance(ctx, "stranger")
	if err != nil {
		t.Fatalf("CurrentBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("balance = %s, want 0", balance)
	}

	history, err := store.History(ctx, "stranger")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history has %d entries, want 0", len(history))
	}

	if _, err := store.DeleteTransaction(ctx, "stranger", 1); !ledger.IsNotFound(err) {
		t.Errorf("delete err = %v, want ErrTransactionNotFound", err)
	}

	stats := store.Stats()
	if stats.FilterRejected != 3 {
		t.Errorf("FilterRejected = %d, want 3", stats.FilterRejected)
	}
	sm := collector.GetStoreMetrics(inner.Name())
	if sm == nil || sm.FilterRejections != 3 {
		t.Errorf("recorded rejections = %+v, want 3", sm)
	}
}

func TestOwnerFilter_PassesKnownOwners(t *testing.T) {
	inner, err := memory.New(memory.Config{})
	if err != nil {
		t.Fatalf("memory.New failed: %v", err)
	}
	store := newFiltered(t, inner, nil)
	defer store.Close()

	ctx := context.Background()

	tx, balance, err := store.Append(ctx, "alice", ledger.KindIncome, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if tx.ID != 1 || !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Append result = %+v, %s", tx, balance)
	}

	// A written owner passes the filter and reads real state
	balance, err = store.CurrentBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("CurrentBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want 100", balance)
	}

	history, err := store.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history has %d entries, want 1", len(history))
	}
}

func TestOwnerFilter_WarmsFromExistingOwners(t *testing.T) {
	inner, err := memory.New(memory.Config{})
	if err != nil {
		t.Fatalf("memory.New failed: %v", err)
	}
	ctx := context.Background()

	// State that predates the filter, as after a restart
	if _, _, err := inner.Append(ctx, "alice", ledger.KindIncome, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	store := newFiltered(t, inner, nil)
	defer store.Close()

	balance, err := store.CurrentBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("CurrentBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balance = %s, want 50 (filter missed a pre-existing owner)", balance)
	}
}
