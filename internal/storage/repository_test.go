package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"buste/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestEnvelopeCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateEnvelope(ctx, "Restaurant", 9000)
	if err != nil {
		t.Fatalf("create envelope: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	got, err := repo.GetEnvelope(ctx, created.ID)
	if err != nil {
		t.Fatalf("get envelope: %v", err)
	}
	if got.Title != "Restaurant" || got.Budget.Cents != 9000 {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

func TestEnvelopeCreateValidation(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.CreateEnvelope(context.Background(), "  ", 100); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestEnvelopeGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.GetEnvelope(context.Background(), 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnvelopeListOrderedByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	empty, err := repo.ListEnvelopes(ctx)
	if err != nil {
		t.Fatalf("list envelopes: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list, got %d", len(empty))
	}

	for _, title := range []string{"a", "b", "c"} {
		if _, err := repo.CreateEnvelope(ctx, title, 100); err != nil {
			t.Fatalf("create envelope: %v", err)
		}
	}

	envelopes, err := repo.ListEnvelopes(ctx)
	if err != nil {
		t.Fatalf("list envelopes: %v", err)
	}
	if len(envelopes) != 3 {
		t.Fatalf("expected 3 envelopes, got %d", len(envelopes))
	}
	for i := 1; i < len(envelopes); i++ {
		if envelopes[i].ID <= envelopes[i-1].ID {
			t.Fatalf("list not ordered by id: %+v", envelopes)
		}
	}
}

func TestEnvelopeUpdateIsFullReplace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateEnvelope(ctx, "Restaurant", 9000)
	if err != nil {
		t.Fatalf("create envelope: %v", err)
	}

	updated, err := repo.UpdateEnvelope(ctx, created.ID, "Surf lesson", 15000)
	if err != nil {
		t.Fatalf("update envelope: %v", err)
	}
	if updated.Title != "Surf lesson" || updated.Budget.Cents != 15000 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	got, err := repo.GetEnvelope(ctx, created.ID)
	if err != nil {
		t.Fatalf("get envelope: %v", err)
	}
	if got.Title != "Surf lesson" || got.Budget.Cents != 15000 {
		t.Fatalf("update not persisted: %+v", got)
	}

	if _, err := repo.UpdateEnvelope(ctx, 999, "x", 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnvelopeDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateEnvelope(ctx, "Restaurant", 9000)
	if err != nil {
		t.Fatalf("create envelope: %v", err)
	}

	if err := repo.DeleteEnvelope(ctx, created.ID); err != nil {
		t.Fatalf("delete envelope: %v", err)
	}
	if _, err := repo.GetEnvelope(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Re-deleting a vanished id surfaces NotFound.
	if err := repo.DeleteEnvelope(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestEnvelopeDeleteCascadesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	env, err := repo.CreateEnvelope(ctx, "Restaurant", 9000)
	if err != nil {
		t.Fatalf("create envelope: %v", err)
	}
	tx, err := repo.InsertTransaction(ctx, repo.db, time.Now().UTC(), "tips", 1000, env.ID)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	if err := repo.DeleteEnvelope(ctx, env.ID); err != nil {
		t.Fatalf("delete envelope: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected cascade delete of transaction, got %v", err)
	}
}

func TestApplyEnvelopeDelta(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	env, err := repo.CreateEnvelope(ctx, "Restaurant", 9000)
	if err != nil {
		t.Fatalf("create envelope: %v", err)
	}

	updated, err := repo.ApplyEnvelopeDelta(ctx, repo.db, env.ID, -1000)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if updated.Budget.Cents != 8000 {
		t.Fatalf("expected 8000 cents, got %d", updated.Budget.Cents)
	}

	updated, err = repo.ApplyEnvelopeDelta(ctx, repo.db, env.ID, 500)
	if err != nil {
		t.Fatalf("apply delta: %v", err)
	}
	if updated.Budget.Cents != 8500 {
		t.Fatalf("expected 8500 cents, got %d", updated.Budget.Cents)
	}

	if _, err := repo.ApplyEnvelopeDelta(ctx, repo.db, 999, 100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	env, err := repo.CreateEnvelope(ctx, "Restaurant", 9000)
	if err != nil {
		t.Fatalf("create envelope: %v", err)
	}

	boom := errors.New("boom")
	err = repo.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := repo.ApplyEnvelopeDelta(ctx, tx, env.ID, -1000); err != nil {
			return err
		}
		if _, err := repo.InsertTransaction(ctx, tx, time.Now().UTC(), "tips", 1000, env.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := repo.GetEnvelope(ctx, env.ID)
	if err != nil {
		t.Fatalf("get envelope: %v", err)
	}
	if got.Budget.Cents != 9000 {
		t.Fatalf("balance changed despite rollback: %d", got.Budget.Cents)
	}
	transactions, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 0 {
		t.Fatalf("transaction persisted despite rollback: %+v", transactions)
	}
}

func TestTransactionExportStates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	env, err := repo.CreateEnvelope(ctx, "Restaurant", 9000)
	if err != nil {
		t.Fatalf("create envelope: %v", err)
	}
	tx, err := repo.InsertTransaction(ctx, repo.db, time.Now().UTC(), "tips", 1000, env.ID)
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	pending, err := repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID {
		t.Fatalf("expected transaction pending, got %+v", pending)
	}

	if err := repo.MarkExported(ctx, tx.ID); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, err = repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending transactions, got %+v", pending)
	}

	// An amendment re-enters the pending state.
	if err := repo.UpdateTransactionFields(ctx, repo.db, tx.ID, "gift", 1500); err != nil {
		t.Fatalf("update transaction: %v", err)
	}
	pending, err = repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected amended transaction pending again, got %+v", pending)
	}
}
