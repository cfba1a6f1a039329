package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the durable medium behind the service: an append-only transaction
// log per owner plus a materialized balance that is maintained incrementally.
// Implementations must keep the two consistent: a transaction and its balance
// update commit together or not at all.
//
// Mutating operations for a single owner serialize inside the store;
// operations on different owners are independent. Reads never observe a
// partially applied write.
type Store interface {
	// Append records a transaction with a fresh monotonically increasing id
	// and the current UTC timestamp, applies the signed amount to the owner's
	// balance, and returns both. On ErrStorageUnavailable nothing changed.
	Append(ctx context.Context, owner string, kind Kind, amount decimal.Decimal) (Transaction, decimal.Decimal, error)

	// CurrentBalance returns the owner's balance, zero if the owner has no
	// prior activity.
	CurrentBalance(ctx context.Context, owner string) (decimal.Decimal, error)

	// History returns the owner's transactions most-recent-first by id.
	// The returned slice is a snapshot the caller may hold freely.
	History(ctx context.Context, owner string) ([]Transaction, error)

	// DeleteTransaction removes one transaction and recomputes the balance
	// from the remaining set. Returns ErrTransactionNotFound if the id does
	// not exist for that owner.
	DeleteTransaction(ctx context.Context, owner string, id int64) (decimal.Decimal, error)

	// Owners lists the owners with persisted activity. Used to warm
	// read-side filters on startup.
	Owners(ctx context.Context) ([]string, error)

	// Name identifies the store implementation for logs and metrics.
	Name() string

	// Close releases the underlying resources.
	Close() error
}
