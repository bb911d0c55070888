package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"buste/internal/core"
)

// apiResponse is the success envelope every endpoint answers with.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Wire shapes. Amounts travel as integer cents; the envelope reference keeps
// the historical field name enveloppe_id.
type envelopeJSON struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Budget int64  `json:"budget"`
}

type transactionJSON struct {
	ID            int64     `json:"id"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	PaymentAmount int64     `json:"payment_amount"`
	EnveloppeID   int64     `json:"enveloppe_id"`
}

type transferJSON struct {
	From envelopeJSON `json:"from"`
	To   envelopeJSON `json:"to"`
}

func toEnvelopeJSON(e core.Envelope) envelopeJSON {
	return envelopeJSON{ID: e.ID, Title: e.Title, Budget: e.Budget.Cents}
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:            t.ID,
		Date:          t.Date,
		Description:   t.Description,
		PaymentAmount: t.PaymentAmount.Cents,
		EnveloppeID:   t.EnvelopeID,
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, apiResponse{Status: "Success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Message: message})
}

// writeDomainError maps component errors to status codes: NotFound becomes a
// 404 with the endpoint's message, validation errors a 400, anything else a
// 500 with the detail kept in the log.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrEmptyDescription):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
