// Package http exposes the envelope store and ledger engine over a JSON API.
package http

import (
	"context"
	"net"
	"net/http"
	"sync"

	"buste/internal/core"
	"buste/internal/middleware/trace"
)

// EnvelopeStore is the envelope CRUD surface the handlers need. Balance
// deltas are deliberately absent: balances only move through the Ledger.
type EnvelopeStore interface {
	CreateEnvelope(ctx context.Context, title string, budgetCents int64) (core.Envelope, error)
	GetEnvelope(ctx context.Context, id int64) (core.Envelope, error)
	ListEnvelopes(ctx context.Context) ([]core.Envelope, error)
	UpdateEnvelope(ctx context.Context, id int64, title string, budgetCents int64) (core.Envelope, error)
	DeleteEnvelope(ctx context.Context, id int64) error
}

// Ledger is the transaction and transfer surface of the ledger engine.
type Ledger interface {
	RecordTransaction(ctx context.Context, description string, paymentAmountCents, envelopeID int64) (core.Transaction, error)
	AmendTransaction(ctx context.Context, id int64, description string, paymentAmountCents int64) (core.Transaction, error)
	RemoveTransaction(ctx context.Context, id int64) error
	Transfer(ctx context.Context, fromID, toID, amountCents int64) (core.TransferReceipt, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
}

type Server struct {
	http.Server

	store  EnvelopeStore
	ledger Ledger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

func NewServer(addr string, store EnvelopeStore, ledger Ledger) *Server {
	s := &Server{
		store:       store,
		ledger:      ledger,
		rateLimiter: newRateLimiter(),
	}
	s.Addr = addr
	s.Handler = trace.Middleware(s.withRateLimit(s.withSecurityHeaders(s.routes())))
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /enveloppes", s.handleListEnvelopes)
	mux.HandleFunc("POST /enveloppes", s.handleCreateEnvelope)
	mux.HandleFunc("GET /enveloppes/{id}", s.handleGetEnvelope)
	mux.HandleFunc("PUT /enveloppes/{id}", s.handleUpdateEnvelope)
	mux.HandleFunc("DELETE /enveloppes/{id}", s.handleDeleteEnvelope)
	mux.HandleFunc("POST /enveloppes/transfer/{from}/{to}", s.handleTransfer)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /transactions/{id}", s.handleAmendTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.rateLimiter.allow(ip) {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter's cleanup goroutine and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
