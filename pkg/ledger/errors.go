package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Common ledger operation errors.
// These are the standard errors that stores and the service return to callers.
var (
	// ErrInvalidAmount is returned when an amount is non-numeric, zero, or negative
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrInsufficientFunds is returned when a debit exceeds the current balance
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrTransactionNotFound is returned when a transaction id does not exist for an owner
	ErrTransactionNotFound = errors.New("ledger: transaction not found")

	// ErrStorageUnavailable is returned when the durable medium cannot commit.
	// It is a retryable condition: the failed operation left no partial state behind.
	ErrStorageUnavailable = errors.New("ledger: storage unavailable")
)

// IsInvalidAmount checks if the given error indicates a rejected amount.
func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

// IsInsufficientFunds checks if the given error indicates an overdraft rejection.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsNotFound checks if the given error indicates a missing transaction.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}

// IsStorageFailure checks if the given error indicates the durable medium failed.
// Callers may safely retry the logical operation when this returns true.
func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// WrapStoreError annotates a store-level failure with the store name and operation.
// The sentinel remains reachable through errors.Is.
func WrapStoreError(err error, store, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ledger store %s %s: %w", store, op, err)
}

// ClassifyError returns a string classification of the error type for metrics.
// This keeps label cardinality bounded in observability dashboards.
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTransactionNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		errStr := strings.ToLower(err.Error())
		switch {
		case strings.Contains(errStr, "connect") || strings.Contains(errStr, "dial"):
			return "connection"
		case strings.Contains(errStr, "marshal") || strings.Contains(errStr, "decode"):
			return "serialization"
		default:
			return "other"
		}
	}
}
