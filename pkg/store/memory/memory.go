// Package memory implements the ledger store on in-memory maps, with an
// optional write-ahead log that makes acknowledged writes survive restarts.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/wal"
)

// Config holds configuration for the memory store.
type Config struct {
	// Name is the store identifier for logs and metrics.
	Name string

	// WALPath is the write-ahead log file path. Empty disables durability;
	// the store is then volatile and suitable for tests only.
	WALPath string
}

// Store keeps each owner's transaction log and materialized balance in
// memory, guarded by a single RWMutex. Every mutation is written to the
// WAL before it is applied, so a failed disk write leaves no partial state
// and a restart replays the log back to the last acknowledged operation.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	byOwner  map[string][]ledger.Transaction // ascending id order
	balances map[string]decimal.Decimal
	log      *wal.WAL
	name     string
}

// walRecord is the single on-disk record shape for both mutation kinds.
type walRecord struct {
	Op    string              `json:"op"` // "append" or "delete"
	Tx    *ledger.Transaction `json:"tx,omitempty"`
	Owner string              `json:"owner,omitempty"`
	ID    int64               `json:"id,omitempty"`
}

// New creates a memory store, replaying the WAL if one is configured.
func New(cfg Config) (*Store, error) {
	if cfg.Name == "" {
		cfg.Name = "memory"
	}

	s := &Store{
		byOwner:  make(map[string][]ledger.Transaction),
		balances: make(map[string]decimal.Decimal),
		name:     cfg.Name,
	}

	if cfg.WALPath != "" {
		log, err := wal.Open(cfg.WALPath)
		if err != nil {
			return nil, fmt.Errorf("memory store: open wal: %w", err)
		}
		s.log = log
		if err := s.recover(); err != nil {
			log.Close()
			return nil, fmt.Errorf("memory store: recover wal: %w", err)
		}
	}

	return s, nil
}

// recover replays the WAL into memory. Runs single-threaded during New,
// so no locking is needed.
func (s *Store) recover() error {
	return s.log.ReadAll(func(raw []byte) error {
		var rec walRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		switch rec.Op {
		case "append":
			if rec.Tx == nil {
				return fmt.Errorf("append record without transaction")
			}
			s.applyAppend(*rec.Tx)
		case "delete":
			s.applyDelete(rec.Owner, rec.ID)
		default:
			return fmt.Errorf("unknown wal op %q", rec.Op)
		}
		return nil
	})
}

// applyAppend mutates in-memory state for one transaction. Callers hold
// the write lock (or run during recovery).
func (s *Store) applyAppend(tx ledger.Transaction) {
	s.byOwner[tx.Owner] = append(s.byOwner[tx.Owner], tx)
	balance, ok := s.balances[tx.Owner]
	if !ok {
		balance = decimal.Zero
	}
	s.balances[tx.Owner] = balance.Add(tx.Kind.Signed(tx.Amount))
	if tx.ID > s.nextID {
		s.nextID = tx.ID
	}
}

// applyDelete removes one transaction and recomputes the owner's balance
// from the remaining set. Reports whether the id existed.
func (s *Store) applyDelete(owner string, id int64) bool {
	txs := s.byOwner[owner]
	idx := -1
	for i, tx := range txs {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	s.byOwner[owner] = append(txs[:idx:idx], txs[idx+1:]...)

	balance := decimal.Zero
	for _, tx := range s.byOwner[owner] {
		balance = balance.Add(tx.Kind.Signed(tx.Amount))
	}
	s.balances[owner] = balance
	return true
}

// Append records a transaction and updates the balance as one unit.
// The WAL write happens before the in-memory mutation: if the disk cannot
// commit, nothing changes and ErrStorageUnavailable is returned.
func (s *Store) Append(ctx context.Context, owner string, kind ledger.Kind, amount decimal.Decimal) (ledger.Transaction, decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Transaction{}, decimal.Zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := ledger.Transaction{
		ID:        s.nextID + 1,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Kind:      kind,
		Amount:    amount,
		Owner:     owner,
	}

	if s.log != nil {
		if err := s.log.Write(walRecord{Op: "append", Tx: &tx}); err != nil {
			return ledger.Transaction{}, decimal.Zero, fmt.Errorf("%w: wal write: %v", ledger.ErrStorageUnavailable, err)
		}
	}

	s.applyAppend(tx)
	return tx, s.balances[owner], nil
}

// CurrentBalance returns the owner's balance, zero if the owner has no
// prior activity.
func (s *Store) CurrentBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, ok := s.balances[owner]
	if !ok {
		return decimal.Zero, nil
	}
	return balance, nil
}

// History returns a snapshot of the owner's transactions, most recent
// first by id.
func (s *Store) History(ctx context.Context, owner string) ([]ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := s.byOwner[owner]
	out := make([]ledger.Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		out = append(out, txs[i])
	}
	return out, nil
}

// DeleteTransaction removes one transaction and recomputes the balance.
func (s *Store) DeleteTransaction(ctx context.Context, owner string, id int64) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Existence check before the WAL write keeps a NotFound from leaving
	// a bogus delete record behind.
	found := false
	for _, tx := range s.byOwner[owner] {
		if tx.ID == id {
			found = true
			break
		}
	}
	if !found {
		return decimal.Zero, ledger.ErrTransactionNotFound
	}

	if s.log != nil {
		if err := s.log.Write(walRecord{Op: "delete", Owner: owner, ID: id}); err != nil {
			return decimal.Zero, fmt.Errorf("%w: wal write: %v", ledger.ErrStorageUnavailable, err)
		}
	}

	s.applyDelete(owner, id)
	return s.balances[owner], nil
}

// Owners lists the owners with recorded activity.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make([]string, 0, len(s.byOwner))
	for owner := range s.byOwner {
		owners = append(owners, owner)
	}
	return owners, nil
}

// Name returns the store identifier.
func (s *Store) Name() string {
	return s.name
}

// Close closes the WAL if one is configured.
func (s *Store) Close() error {
	if s.log == nil {
		return nil
	}
	return s.log.Close()
}

// Compile-time check that Store satisfies the ledger store contract.
var _ ledger.Store = (*Store)(nil)
