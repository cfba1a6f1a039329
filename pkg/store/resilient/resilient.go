// Package resilient wraps a ledger store with circuit breaker and timeout
// protection. When the durable medium misbehaves, callers see the retryable
// ErrStorageUnavailable instead of hanging or hammering a dead backend.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/logging"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/metrics"
)

// Config configures resilience features for a wrapped store.
type Config struct {
	// Timeout for store operations. 0 disables the per-call deadline.
	Timeout time.Duration

	// CircuitBreaker configures the circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed to pass through
	// when the breaker is half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing the
	// internal counts. 0 never clears.
	Interval time.Duration

	// Timeout is the period of the open state after which the state
	// becomes half-open.
	Timeout time.Duration

	// ReadyToTrip is called with a copy of Counts whenever a request fails.
	// If nil, the breaker trips after 5 consecutive failures.
	ReadyToTrip func(counts Counts) bool
}

// Counts holds the numbers of requests and their successes/failures.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// DefaultConfig returns sensible defaults for resilience configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts Counts) bool {
				if counts.Requests < 20 {
					return false
				}
				failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
				return failureRate >= 0.15
			},
		},
	}
}

// Store wraps a ledger store with a circuit breaker and per-call timeouts.
type Store struct {
	inner   ledger.Store
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// New creates a resilient wrapper around the given store.
func New(inner ledger.Store, cfg Config) *Store {
	return NewWithMetrics(inner, cfg, metrics.NoOpCollector{})
}

// NewWithMetrics creates a resilient wrapper with a custom metrics collector.
func NewWithMetrics(inner ledger.Store, cfg Config, collector metrics.Collector) *Store {
	logger := logging.Global().Named("resilient").Named(inner.Name())

	s := &Store{
		inner:   inner,
		timeout: cfg.Timeout,
		metrics: collector,
		logger:  logger,
	}

	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.CircuitBreaker.ReadyToTrip != nil {
				return cfg.CircuitBreaker.ReadyToTrip(Counts{
					Requests:             counts.Requests,
					TotalSuccesses:       counts.TotalSuccesses,
					TotalFailures:        counts.TotalFailures,
					ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
					ConsecutiveFailures:  counts.ConsecutiveFailures,
				})
			}
			return counts.ConsecutiveFailures >= 5
		},
		// Business rejections are not backend failures and must not trip
		// the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || ledger.IsNotFound(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("store", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			s.metrics.RecordCircuitState(inner.Name(), state)
		},
	}

	s.cb = gobreaker.NewCircuitBreaker(settings)
	return s
}

// exec runs one store call through the breaker with the configured
// timeout, translating breaker and deadline failures into the retryable
// storage sentinel.
func (s *Store) exec(ctx context.Context, op string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	start := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})

	duration := time.Since(start)
	s.metrics.RecordStoreOp(s.inner.Name(), op, err == nil || ledger.IsNotFound(err), duration)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("circuit breaker rejected request", zap.String("op", op))
			return nil, fmt.Errorf("%w: circuit breaker open", ledger.ErrStorageUnavailable)
		}
		if ctx.Err() == context.DeadlineExceeded {
			s.logger.Warn("store operation timed out",
				zap.String("op", op),
				zap.Duration("timeout", s.timeout),
				zap.Duration("elapsed", duration),
			)
			return nil, fmt.Errorf("%w: %s timed out", ledger.ErrStorageUnavailable, op)
		}
		return nil, err
	}
	return result, nil
}

type appendResult struct {
	tx      ledger.Transaction
	balance decimal.Decimal
}

// Append delegates to the wrapped store under breaker protection.
func (s *Store) Append(ctx context.Context, owner string, kind ledger.Kind, amount decimal.Decimal) (ledger.Transaction, decimal.Decimal, error) {
	v, err := s.exec(ctx, "append", func(ctx context.Context) (interface{}, error) {
		tx, balance, err := s.inner.Append(ctx, owner, kind, amount)
		if err != nil {
			return nil, err
		}
		return appendResult{tx: tx, balance: balance}, nil
	})
	if err != nil {
		return ledger.Transaction{}, decimal.Zero, err
	}
	r := v.(appendResult)
	return r.tx, r.balance, nil
}

// CurrentBalance delegates to the wrapped store under breaker protection.
func (s *Store) CurrentBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	v, err := s.exec(ctx, "balance", func(ctx context.Context) (interface{}, error) {
		return s.inner.CurrentBalance(ctx, owner)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// History delegates to the wrapped store under breaker protection.
func (s *Store) History(ctx context.Context, owner string) ([]ledger.Transaction, error) {
	v, err := s.exec(ctx, "history", func(ctx context.Context) (interface{}, error) {
		return s.inner.History(ctx, owner)
	})
	if err != nil {
		return nil, err
	}
	return v.([]ledger.Transaction), nil
}

// DeleteTransaction delegates to the wrapped store under breaker protection.
func (s *Store) DeleteTransaction(ctx context.Context, owner string, id int64) (decimal.Decimal, error) {
	v, err := s.exec(ctx, "delete", func(ctx context.Context) (interface{}, error) {
		return s.inner.DeleteTransaction(ctx, owner, id)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// Owners delegates to the wrapped store under breaker protection.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	v, err := s.exec(ctx, "owners", func(ctx context.Context) (interface{}, error) {
		return s.inner.Owners(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Name returns the wrapped store's identifier.
func (s *Store) Name() string {
	return s.inner.Name()
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	return s.inner.Close()
}

var _ ledger.Store = (*Store)(nil)
