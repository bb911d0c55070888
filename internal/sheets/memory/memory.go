// Package memory is an in-memory LedgerWriter for tests and deployments
// without a spreadsheet configured.
package memory

import (
	"context"
	"sync"

	"buste/internal/core"
	ports "buste/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var _ ports.LedgerWriter = (*Store)(nil)

func NewStore() *Store {
	return &Store{}
}

func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, t)
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.rows))
	copy(out, s.rows)
	return out
}
