package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/logging"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics"
)

// ServiceConfig holds configuration for the ledger service.
type ServiceConfig struct {
	// AllowOverdraft permits debits that push the balance below zero.
	// The default (false) rejects them with ErrInsufficientFunds before
	// anything is recorded, keeping the balance non-negative.
	AllowOverdraft bool

	// Logger for service events. Defaults to the global logger.
	Logger *logging.Logger

	// Metrics collector for operation outcomes. Defaults to a no-op.
	Metrics metrics.Collector
}

// Service validates intent, enforces the business rules, and translates
// calls into atomic store operations. It holds no persistent state of its
// own; the injected Store owns the balance/log pair.
type Service struct {
	store   Store
	cfg     ServiceConfig
	logger  *logging.Logger
	metrics metrics.Collector

	// Per-owner write locks. The read-check-append of a debit must be
	// atomic with respect to other writers for the same owner; unrelated
	// owners proceed independently.
	muMap map[string]*sync.Mutex
	mapMu sync.Mutex

	// Collapses concurrent identical reads into one store round trip.
	sf singleflight.Group
}

// NewService creates a ledger service on top of the given store.
func NewService(store Store, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Global().Named("ledger")
	}
	collector := cfg.Metrics
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	return &Service{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		muMap:   make(map[string]*sync.Mutex),
	}
}

// ownerLock returns the mutex serializing writes for one owner,
// creating it on first use.
func (s *Service) ownerLock(owner string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	mu, ok := s.muMap[owner]
	if !ok {
		mu = &sync.Mutex{}
		s.muMap[owner] = mu
	}
	return mu
}

// Credit records an income transaction and returns the new balance.
// Fails with ErrInvalidAmount for zero or negative amounts.
func (s *Service) Credit(ctx context.Context, owner string, amount decimal.Decimal) (Result, error) {
	start := time.Now()

	if err := ValidateAmount(amount); err != nil {
		s.record("credit", start, err)
		return Result{}, err
	}

	mu := s.ownerLock(owner)
	mu.Lock()
	defer mu.Unlock()

	tx, balance, err := s.store.Append(ctx, owner, KindIncome, amount)
	s.record("credit", start, err)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("credit recorded",
		zap.String("owner", owner),
		zap.Int64("id", tx.ID),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()),
	)
	return Result{Balance: balance, Transaction: tx}, nil
}

// Debit records an expense transaction and returns the new balance.
// Fails with ErrInvalidAmount for zero or negative amounts, and, unless
// overdraft is allowed, with ErrInsufficientFunds when the amount exceeds
// the current balance. A rejected debit leaves balance and log unchanged.
func (s *Service) Debit(ctx context.Context, owner string, amount decimal.Decimal) (Result, error) {
	start := time.Now()

	if err := ValidateAmount(amount); err != nil {
		s.record("debit", start, err)
		return Result{}, err
	}

	mu := s.ownerLock(owner)
	mu.Lock()
	defer mu.Unlock()

	if !s.cfg.AllowOverdraft {
		balance, err := s.store.CurrentBalance(ctx, owner)
		if err != nil {
			s.record("debit", start, err)
			return Result{}, err
		}
		if amount.GreaterThan(balance) {
			s.record("debit", start, ErrInsufficientFunds)
			s.logger.Info("debit rejected",
				zap.String("owner", owner),
				zap.String("amount", amount.String()),
				zap.String("balance", balance.String()),
			)
			return Result{}, ErrInsufficientFunds
		}
	}

	tx, balance, err := s.store.Append(ctx, owner, KindExpense, amount)
	s.record("debit", start, err)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("debit recorded",
		zap.String("owner", owner),
		zap.Int64("id", tx.ID),
		zap.String("amount", amount.String()),
		zap.String("balance", balance.String()),
	)
	return Result{Balance: balance, Transaction: tx}, nil
}

// Balance returns the owner's current balance, zero for unknown owners.
func (s *Service) Balance(ctx context.Context, owner string) (decimal.Decimal, error) {
	start := time.Now()
	balance, err := s.store.CurrentBalance(ctx, owner)
	s.record("balance", start, err)
	return balance, err
}

// History returns the owner's transactions most-recent-first by id.
// Concurrent identical calls share a single store round trip.
func (s *Service) History(ctx context.Context, owner string) ([]Transaction, error) {
	start := time.Now()

	v, err, _ := s.sf.Do("history:"+owner, func() (interface{}, error) {
		return s.store.History(ctx, owner)
	})
	s.record("history", start, err)
	if err != nil {
		return nil, err
	}
	return v.([]Transaction), nil
}

// DeleteTransaction removes a transaction and returns the recomputed balance.
// Fails with ErrTransactionNotFound if the id does not exist for the owner.
func (s *Service) DeleteTransaction(ctx context.Context, owner string, id int64) (decimal.Decimal, error) {
	start := time.Now()

	mu := s.ownerLock(owner)
	mu.Lock()
	defer mu.Unlock()

	balance, err := s.store.DeleteTransaction(ctx, owner, id)
	s.record("delete", start, err)
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("transaction deleted",
		zap.String("owner", owner),
		zap.Int64("id", id),
		zap.String("balance", balance.String()),
	)
	return balance, nil
}

// Summary returns the income/expense totals and net for one owner,
// computed over the non-deleted history.
func (s *Service) Summary(ctx context.Context, owner string) (Summary, error) {
	start := time.Now()

	history, err := s.History(ctx, owner)
	if err != nil {
		s.record("summary", start, err)
		return Summary{}, err
	}

	summary := Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, tx := range history {
		switch tx.Kind {
		case KindIncome:
			summary.TotalIncome = summary.TotalIncome.Add(tx.Amount)
		case KindExpense:
			summary.TotalExpense = summary.TotalExpense.Add(tx.Amount)
		}
	}
	summary.Net = summary.TotalIncome.Sub(summary.TotalExpense)

	s.record("summary", start, nil)
	return summary, nil
}

// record reports one operation outcome to the metrics collector.
func (s *Service) record(op string, start time.Time, err error) {
	s.metrics.RecordOperation(op, ClassifyError(err), time.Since(start))
}
