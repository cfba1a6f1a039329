package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/isaac-danso-asiedu/finance-tracker/pkg/ledger"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/logging"
	"github.com/isaac-danso-asiedu/finance-tracker/pkg/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := memory.New(memory.Config{})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	service := ledger.NewService(store, ledger.ServiceConfig{
		Logger: logging.NewNoOpLogger(),
	})

	server, err := NewServer(service, logging.NewNoOpLogger(), DefaultServerConfig())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
}

func TestServer_IncomeAndBalance(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, "POST", "/ledger/alice/income", `{"amount": "100.50"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["balance"] != "100.5" {
		t.Errorf("balance = %v, want 100.5", body["balance"])
	}
	tx, ok := body["transaction"].(map[string]interface{})
	if !ok {
		t.Fatalf("transaction missing in %v", body)
	}
	if tx["kind"] != "Income" {
		t.Errorf("kind = %v, want Income", tx["kind"])
	}
	if tx["timestamp"] == "" {
		t.Error("timestamp missing")
	}

	rec = doRequest(t, server, "GET", "/ledger/alice/balance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["balance"] != "100.5" {
		t.Errorf("balance = %v, want 100.5", body["balance"])
	}
}

func TestServer_ExpenseErrorMapping(t *testing.T) {
	server := newTestServer(t)

	// Fund the account
	rec := doRequest(t, server, "POST", "/ledger/alice/income", `{"amount": "50"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("funding failed: %d", rec.Code)
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"amount": "20"}`, http.StatusCreated},
		{"insufficient funds", `{"amount": "1000"}`, http.StatusConflict},
		{"zero amount", `{"amount": "0"}`, http.StatusBadRequest},
		{"negative amount", `{"amount": "-5"}`, http.StatusBadRequest},
		{"non-numeric amount", `{"amount": "abc"}`, http.StatusBadRequest},
		{"malformed body", `{not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, server, "POST", "/ledger/alice/expense", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d, body: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestServer_NumericAmountAccepted(t *testing.T) {
	server := newTestServer(t)

	// JSON numbers work as well as strings
	rec := doRequest(t, server, "POST", "/ledger/alice/income", `{"amount": 42.5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["balance"] != "42.5" {
		t.Errorf("balance = %v, want 42.5", body["balance"])
	}
}

func TestServer_History(t *testing.T) {
	server := newTestServer(t)

	doRequest(t, server, "POST", "/ledger/alice/income", `{"amount": "100"}`)
	doRequest(t, server, "POST", "/ledger/alice/expense", `{"amount": "30"}`)

	rec := doRequest(t, server, "GET", "/ledger/alice/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	txs, ok := body["transactions"].([]interface{})
	if !ok || len(txs) != 2 {
		t.Fatalf("transactions = %v, want 2 entries", body["transactions"])
	}

	// Most recent first
	first := txs[0].(map[string]interface{})
	if first["kind"] != "Expense" || first["amount"] != "30" {
		t.Errorf("newest entry = %v, want Expense 30", first)
	}

	// Unknown owner reads an empty list, not an error
	rec = doRequest(t, server, "GET", "/ledger/nobody/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body = decodeBody(t, rec)
	if txs, ok := body["transactions"].([]interface{}); !ok || len(txs) != 0 {
		t.Errorf("transactions = %v, want empty list", body["transactions"])
	}
}

func TestServer_Summary(t *testing.T) {
	server := newTestServer(t)

	doRequest(t, server, "POST", "/ledger/alice/income", `{"amount": "100"}`)
	doRequest(t, server, "POST", "/ledger/alice/expense", `{"amount": "30"}`)

	rec := doRequest(t, server, "GET", "/ledger/alice/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["total_income"] != "100" || body["total_expense"] != "30" || body["net"] != "70" {
		t.Errorf("summary = %v", body)
	}
}

func TestServer_DeleteTransaction(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, "POST", "/ledger/alice/income", `{"amount": "100"}`)
	body := decodeBody(t, rec)
	tx := body["transaction"].(map[string]interface{})
	id := int64(tx["id"].(float64))

	rec = doRequest(t, server, "DELETE", fmt.Sprintf("/ledger/alice/transactions/%d", id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	body = decodeBody(t, rec)
	if body["balance"] != "0" {
		t.Errorf("balance = %v, want 0", body["balance"])
	}

	// Second delete is a 404
	rec = doRequest(t, server, "DELETE", fmt.Sprintf("/ledger/alice/transactions/%d", id), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_RequestIDHeader(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, "GET", "/health", "")
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("response missing request id header")
	}

	// A caller-supplied id is echoed back
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(requestIDHeader, "my-id")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "my-id" {
		t.Errorf("request id = %q, want my-id", got)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	store, err := memory.New(memory.Config{})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	service := ledger.NewService(store, ledger.ServiceConfig{
		Logger: logging.NewNoOpLogger(),
	})

	cfg := DefaultServerConfig()
	cfg.Registry = prometheus.NewRegistry()
	server, err := NewServer(service, logging.NewNoOpLogger(), cfg)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	doRequest(t, server, "POST", "/ledger/alice/income", `{"amount": "1"}`)

	rec := doRequest(t, server, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_http_requests_total") {
		t.Error("metrics output missing http request counter")
	}
}
