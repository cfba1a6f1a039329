package api

import (
	"encoding/json"
	"net/http"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

// writeLedgerError maps a ledger error to its HTTP status.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsInvalidAmount(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case ledger.IsInsufficientFunds(err):
		writeError(w, http.StatusConflict, err.Error())
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case ledger.IsStorageFailure(err):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
