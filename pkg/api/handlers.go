package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
)

// amountRequest is the body of a write request. Amounts travel as JSON
// strings or numbers; keeping the raw text avoids float64 rounding
// before parsing.
type amountRequest struct {
	Amount json.RawMessage `json:"amount"`
}

// rawAmount returns the amount text with any JSON string quoting removed.
func (r amountRequest) rawAmount() string {
	raw := strings.TrimSpace(string(r.Amount))
	if len(raw) >= 2 && raw[0] == '"' {
		if unquoted, err := strconv.Unquote(raw); err == nil {
			return unquoted
		}
	}
	return raw
}

// transactionView is a transaction rendered for the wire, timestamp
// formatted with the ledger display layout.
type transactionView struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
}

func viewOf(tx ledger.Transaction) transactionView {
	return transactionView{
		ID:        tx.ID,
		Timestamp: tx.Timestamp.Format(ledger.TimestampLayout),
		Kind:      string(tx.Kind),
		Amount:    tx.Amount.String(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	s.handleWrite(w, r, s.service.Credit)
}

func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request) {
	s.handleWrite(w, r, s.service.Debit)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request, write writeFunc) {
	owner := mux.Vars(r)["owner"]

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := ledger.ParseAmount(req.rawAmount())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	result, err := write(r.Context(), owner, amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"balance":     result.Balance.String(),
		"transaction": viewOf(result.Transaction),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	balance, err := s.service.Balance(r.Context(), owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":   owner,
		"balance": balance.String(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	history, err := s.service.History(r.Context(), owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	views := make([]transactionView, 0, len(history))
	for _, tx := range history {
		views = append(views, viewOf(tx))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":        owner,
		"transactions": views,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	summary, err := s.service.Summary(r.Context(), owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":         owner,
		"total_income":  summary.TotalIncome.String(),
		"total_expense": summary.TotalExpense.String(),
		"net":           summary.Net.String(),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner := vars["owner"]

	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	balance, err := s.service.DeleteTransaction(r.Context(), owner, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":   owner,
		"deleted": id,
		"balance": balance.String(),
	})
}

// writeFunc is the shared shape of Service.Credit and Service.Debit.
type writeFunc func(ctx context.Context, owner string, amount decimal.Decimal) (ledger.Result, error)
