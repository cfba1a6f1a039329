package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the display format for transaction timestamps,
// second precision, matching the persisted layout.
const TimestampLayout = "2006-01-02 15:04:05"

// Kind is the transaction polarity: Income adds to the balance, Expense subtracts.
type Kind string

const (
	KindIncome  Kind = "Income"
	KindExpense Kind = "Expense"
)

// Valid reports whether k is one of the known transaction kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Sign returns +1 for Income and -1 for Expense.
func (k Kind) Sign() int {
	if k == KindExpense {
		return -1
	}
	return 1
}

// Signed returns the amount with the kind's sign applied.
func (k Kind) Signed(amount decimal.Decimal) decimal.Decimal {
	if k == KindExpense {
		return amount.Neg()
	}
	return amount
}

// Transaction is an immutable ledger record. The store assigns the id
// (monotonically increasing per store) and the creation timestamp; the
// record is never mutated afterwards.
type Transaction struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      Kind            `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Owner     string          `json:"owner"`
}

// Result is the success payload of a write operation: the transaction that
// was recorded and the balance it produced.
type Result struct {
	Balance     decimal.Decimal `json:"balance"`
	Transaction Transaction     `json:"transaction"`
}

// Summary holds the totals for one owner's ledger.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
}
