package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"buste/internal/core"
)

// CreateEnvelope stores a new envelope and returns it with its assigned id.
func (r *SQLiteRepository) CreateEnvelope(ctx context.Context, title string, budgetCents int64) (core.Envelope, error) {
	env := core.Envelope{Title: title, Budget: core.Money{Cents: budgetCents}}
	if err := env.Validate(); err != nil {
		return core.Envelope{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO envelopes (title, budget_cents) VALUES (?, ?)`,
		title, budgetCents)
	if err != nil {
		return core.Envelope{}, fmt.Errorf("create envelope: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Envelope{}, fmt.Errorf("create envelope: last insert id: %w", err)
	}
	env.ID = id

	slog.InfoContext(ctx, "Envelope created",
		"id", env.ID,
		"title", env.Title,
		"budget_cents", env.Budget.Cents)

	return env, nil
}

// GetEnvelope returns the envelope with the given id, or core.ErrNotFound.
func (r *SQLiteRepository) GetEnvelope(ctx context.Context, id int64) (core.Envelope, error) {
	return r.EnvelopeByID(ctx, r.db, id)
}

// EnvelopeByID reads a single envelope through q, which may be a transaction
// when the read has to be isolated with later writes.
func (r *SQLiteRepository) EnvelopeByID(ctx context.Context, q DBTX, id int64) (core.Envelope, error) {
	var env core.Envelope
	err := q.QueryRowContext(ctx,
		`SELECT id, title, budget_cents FROM envelopes WHERE id = ?`, id).
		Scan(&env.ID, &env.Title, &env.Budget.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Envelope{}, fmt.Errorf("envelope %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Envelope{}, fmt.Errorf("get envelope: %w", err)
	}
	return env, nil
}

// ListEnvelopes returns all envelopes ordered by id ascending. An empty
// result is not an error.
func (r *SQLiteRepository) ListEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, budget_cents FROM envelopes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []core.Envelope
	for rows.Next() {
		var env core.Envelope
		if err := rows.Scan(&env.ID, &env.Title, &env.Budget.Cents); err != nil {
			return nil, fmt.Errorf("list envelopes: scan: %w", err)
		}
		envelopes = append(envelopes, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	return envelopes, nil
}

// UpdateEnvelope replaces title and budget in full and returns the updated
// record. It is not a merge; both fields are overwritten.
func (r *SQLiteRepository) UpdateEnvelope(ctx context.Context, id int64, title string, budgetCents int64) (core.Envelope, error) {
	env := core.Envelope{ID: id, Title: title, Budget: core.Money{Cents: budgetCents}}
	if err := env.Validate(); err != nil {
		return core.Envelope{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE envelopes SET title = ?, budget_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, budgetCents, id)
	if err != nil {
		return core.Envelope{}, fmt.Errorf("update envelope: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return core.Envelope{}, fmt.Errorf("update envelope: rows affected: %w", err)
	} else if affected == 0 {
		return core.Envelope{}, fmt.Errorf("envelope %d: %w", id, core.ErrNotFound)
	}

	return env, nil
}

// DeleteEnvelope removes an envelope. Transactions referencing it are removed
// by the schema's ON DELETE CASCADE.
func (r *SQLiteRepository) DeleteEnvelope(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM envelopes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete envelope: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete envelope: rows affected: %w", err)
	} else if affected == 0 {
		return fmt.Errorf("envelope %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Envelope deleted", "id", id)
	return nil
}

// ApplyEnvelopeDelta adds delta (signed cents) to an envelope's balance and
// returns the updated record. It exists for the ledger engine and is only
// called inside a unit of work; the HTTP boundary never reaches it.
func (r *SQLiteRepository) ApplyEnvelopeDelta(ctx context.Context, q DBTX, id int64, deltaCents int64) (core.Envelope, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE envelopes SET budget_cents = budget_cents + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		deltaCents, id)
	if err != nil {
		return core.Envelope{}, fmt.Errorf("apply envelope delta: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return core.Envelope{}, fmt.Errorf("apply envelope delta: rows affected: %w", err)
	} else if affected == 0 {
		return core.Envelope{}, fmt.Errorf("envelope %d: %w", id, core.ErrNotFound)
	}

	return r.EnvelopeByID(ctx, q, id)
}
