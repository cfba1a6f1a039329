package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts caller-supplied text into a validated positive amount.
// The inbound value is whatever the presentation layer collected (form field,
// JSON number rendered as text); anything that is not a finite positive
// decimal is rejected with ErrInvalidAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}

	return amount, ValidateAmount(amount)
}

// ValidateAmount checks that an already-parsed amount is strictly positive.
// Zero and negative amounts are rejected; the sign of a transaction comes from
// its Kind, never from the amount itself.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: must be positive, got %s", ErrInvalidAmount, amount)
	}
	return nil
}
