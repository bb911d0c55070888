package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"buste/internal/services"
	"buste/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ledger := services.NewLedgerService(repo, nil, false)
	srv := NewServer(":0", repo, ledger)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func createEnvelope(t *testing.T, srv *Server, title string, budget int64) int64 {
	t.Helper()
	rec := doRequest(t, srv, "POST", "/enveloppes", map[string]any{"title": title, "budget": budget})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create envelope: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	return int64(data["id"].(float64))
}

func TestListEnvelopesEmptyIs404(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "GET", "/enveloppes", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty list, got %d", rec.Code)
	}
}

func TestEnvelopeCRUD(t *testing.T) {
	srv := newTestServer(t)

	id := createEnvelope(t, srv, "Restaurant", 90)

	rec := doRequest(t, srv, "GET", fmt.Sprintf("/enveloppes/%d", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "Success" {
		t.Fatalf("expected Success status, got %q", resp.Status)
	}
	data := resp.Data.(map[string]any)
	if data["title"] != "Restaurant" || data["budget"].(float64) != 90 {
		t.Fatalf("unexpected envelope data: %v", data)
	}

	rec = doRequest(t, srv, "GET", "/enveloppes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, srv, "PUT", fmt.Sprintf("/enveloppes/%d", id), map[string]any{"title": "Surf lesson", "budget": 150})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp = decodeResponse(t, rec)
	data = resp.Data.(map[string]any)
	if data["title"] != "Surf lesson" || data["budget"].(float64) != 150 {
		t.Fatalf("unexpected updated envelope: %v", data)
	}

	rec = doRequest(t, srv, "DELETE", fmt.Sprintf("/enveloppes/%d", id), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, srv, "GET", fmt.Sprintf("/enveloppes/%d", id), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	rec = doRequest(t, srv, "DELETE", fmt.Sprintf("/enveloppes/%d", id), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestEnvelopeValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"budget": 90}},
		{"blank title", map[string]any{"title": "  ", "budget": 90}},
		{"missing budget", map[string]any{"title": "Restaurant"}},
		{"bad budget", map[string]any{"title": "Restaurant", "budget": "abc"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, srv, "POST", "/enveloppes", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTransactionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	envID := createEnvelope(t, srv, "Restaurant", 90)

	rec := doRequest(t, srv, "GET", "/transactions", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty transaction list, got %d", rec.Code)
	}

	rec = doRequest(t, srv, "POST", "/transactions", map[string]any{
		"description":    "tips",
		"payment_amount": 10,
		"enveloppe_id":   envID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	txID := int64(data["id"].(float64))
	if data["payment_amount"].(float64) != 10 || int64(data["enveloppe_id"].(float64)) != envID {
		t.Fatalf("unexpected transaction data: %v", data)
	}

	// The envelope was debited in the same unit of work.
	rec = doRequest(t, srv, "GET", fmt.Sprintf("/enveloppes/%d", envID), nil)
	envData := decodeResponse(t, rec).Data.(map[string]any)
	if envData["budget"].(float64) != 80 {
		t.Fatalf("expected budget 80 after transaction, got %v", envData["budget"])
	}

	rec = doRequest(t, srv, "GET", fmt.Sprintf("/transactions/%d", txID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, srv, "PUT", fmt.Sprintf("/transactions/%d", txID), map[string]any{
		"description":    "gift",
		"payment_amount": 15,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, srv, "GET", fmt.Sprintf("/enveloppes/%d", envID), nil)
	envData = decodeResponse(t, rec).Data.(map[string]any)
	if envData["budget"].(float64) != 75 {
		t.Fatalf("expected budget 75 after amendment, got %v", envData["budget"])
	}

	rec = doRequest(t, srv, "DELETE", fmt.Sprintf("/transactions/%d", txID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp = decodeResponse(t, rec)
	if resp.Message == "" {
		t.Fatal("expected confirmation message")
	}

	rec = doRequest(t, srv, "DELETE", fmt.Sprintf("/transactions/%d", txID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting missing transaction, got %d", rec.Code)
	}
}

func TestCreateTransactionMissingEnvelope(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/transactions", map[string]any{
		"description":    "tips",
		"payment_amount": 10,
		"enveloppe_id":   42,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}

	// The failed unit of work left no transaction behind.
	rec = doRequest(t, srv, "GET", "/transactions", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty transaction list, got %d", rec.Code)
	}
}

func TestTransferEndpoint(t *testing.T) {
	srv := newTestServer(t)

	fromID := createEnvelope(t, srv, "Restaurant", 80)
	toID := createEnvelope(t, srv, "Groceries", 50)

	rec := doRequest(t, srv, "POST", fmt.Sprintf("/enveloppes/transfer/%d/%d", fromID, toID), map[string]any{"amount": 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	from := data["from"].(map[string]any)
	to := data["to"].(map[string]any)
	if from["budget"].(float64) != 70 || to["budget"].(float64) != 60 {
		t.Fatalf("unexpected transfer result: %v", data)
	}

	rec = doRequest(t, srv, "POST", fmt.Sprintf("/enveloppes/transfer/%d/%d", fromID, 999), map[string]any{"amount": 10})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing destination, got %d", rec.Code)
	}
	// The source keeps its balance when the transfer fails.
	rec = doRequest(t, srv, "GET", fmt.Sprintf("/enveloppes/%d", fromID), nil)
	envData := decodeResponse(t, rec).Data.(map[string]any)
	if envData["budget"].(float64) != 70 {
		t.Fatalf("source debited by failed transfer: %v", envData["budget"])
	}
}

func TestDecimalStringAmounts(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, "POST", "/enveloppes", map[string]any{"title": "Restaurant", "budget": "90.00"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeResponse(t, rec).Data.(map[string]any)
	if data["budget"].(float64) != 9000 {
		t.Fatalf("expected 9000 cents from \"90.00\", got %v", data["budget"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, "GET", path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
