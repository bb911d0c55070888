// Package services implements the ledger engine: the only path through which
// envelope balances change as a side effect of transaction activity.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"buste/internal/amqp"
	"buste/internal/core"
	"buste/internal/storage"
)

// EventPublisher notifies downstream consumers that a ledger operation
// committed. *amqp.Client satisfies it; nil disables publishing.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService owns transaction records and applies their balance effects to
// envelopes. Every multi-step operation runs as one unit of work: either the
// transaction record and the balance change both persist, or neither does.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher EventPublisher

	// reverseOnDelete controls whether removing a transaction also undoes its
	// balance effect. The historical behavior is to leave the balance alone.
	reverseOnDelete bool
}

func NewLedgerService(storage *storage.SQLiteRepository, publisher EventPublisher, reverseOnDelete bool) *LedgerService {
	return &LedgerService{
		storage:         storage,
		publisher:       publisher,
		reverseOnDelete: reverseOnDelete,
	}
}

// RecordTransaction verifies the envelope exists, inserts the transaction
// with the current timestamp and debits the envelope by the payment amount,
// all inside one unit of work.
func (s *LedgerService) RecordTransaction(ctx context.Context, description string, paymentAmountCents, envelopeID int64) (core.Transaction, error) {
	draft := core.Transaction{
		Description:   description,
		PaymentAmount: core.Money{Cents: paymentAmountCents},
		EnvelopeID:    envelopeID,
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var created core.Transaction
	err := s.storage.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.storage.EnvelopeByID(ctx, tx, envelopeID); err != nil {
			return fmt.Errorf("verify envelope: %w", err)
		}

		t, err := s.storage.InsertTransaction(ctx, tx, time.Now().UTC(), description, paymentAmountCents, envelopeID)
		if err != nil {
			return err
		}

		if _, err := s.storage.ApplyEnvelopeDelta(ctx, tx, envelopeID, -paymentAmountCents); err != nil {
			return fmt.Errorf("debit envelope: %w", err)
		}

		created = t
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", created.ID,
		"envelope_id", envelopeID,
		"payment_amount_cents", paymentAmountCents)

	s.publishEvent(ctx, amqp.NewLedgerEvent(amqp.EventTransactionCreated, created.ID, envelopeID))
	return created, nil
}

// AmendTransaction replaces a transaction's description and payment amount.
// The envelope is adjusted by (old amount - new amount): the old debit is
// undone and the new one applied, in the same unit of work as the field
// update.
func (s *LedgerService) AmendTransaction(ctx context.Context, id int64, description string, paymentAmountCents int64) (core.Transaction, error) {
	draft := core.Transaction{
		Description:   description,
		PaymentAmount: core.Money{Cents: paymentAmountCents},
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var amended core.Transaction
	err := s.storage.InTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.storage.TransactionByID(ctx, tx, id)
		if err != nil {
			return err
		}

		delta := existing.PaymentAmount.Cents - paymentAmountCents
		if _, err := s.storage.ApplyEnvelopeDelta(ctx, tx, existing.EnvelopeID, delta); err != nil {
			return fmt.Errorf("adjust envelope: %w", err)
		}

		if err := s.storage.UpdateTransactionFields(ctx, tx, id, description, paymentAmountCents); err != nil {
			return err
		}

		amended = existing
		amended.Description = description
		amended.PaymentAmount = core.Money{Cents: paymentAmountCents}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction amended",
		"id", amended.ID,
		"envelope_id", amended.EnvelopeID,
		"payment_amount_cents", paymentAmountCents)

	s.publishEvent(ctx, amqp.NewLedgerEvent(amqp.EventTransactionAmended, amended.ID, amended.EnvelopeID))
	return amended, nil
}

// RemoveTransaction deletes a transaction record. By default the balance
// effect from its creation stays on the envelope; with reverseOnDelete the
// debit is undone inside the same unit of work.
func (s *LedgerService) RemoveTransaction(ctx context.Context, id int64) error {
	var envelopeID int64
	err := s.storage.InTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.storage.TransactionByID(ctx, tx, id)
		if err != nil {
			return err
		}
		envelopeID = existing.EnvelopeID

		if err := s.storage.DeleteTransactionRow(ctx, tx, id); err != nil {
			return err
		}

		if s.reverseOnDelete {
			if _, err := s.storage.ApplyEnvelopeDelta(ctx, tx, existing.EnvelopeID, existing.PaymentAmount.Cents); err != nil {
				return fmt.Errorf("reverse envelope debit: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction removed",
		"id", id,
		"envelope_id", envelopeID,
		"balance_reversed", s.reverseOnDelete)

	s.publishEvent(ctx, amqp.NewLedgerEvent(amqp.EventTransactionRemoved, id, envelopeID))
	return nil
}

// Transfer moves amount from one envelope's balance to another's. Both ids
// are verified inside the unit of work before either balance is touched, so
// a transfer can never debit against a vanished envelope. A negative amount
// moves funds the opposite way; no transaction record is created.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID, amountCents int64) (core.TransferReceipt, error) {
	var receipt core.TransferReceipt
	err := s.storage.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.storage.EnvelopeByID(ctx, tx, fromID); err != nil {
			return fmt.Errorf("verify source envelope: %w", err)
		}
		if _, err := s.storage.EnvelopeByID(ctx, tx, toID); err != nil {
			return fmt.Errorf("verify destination envelope: %w", err)
		}

		from, err := s.storage.ApplyEnvelopeDelta(ctx, tx, fromID, -amountCents)
		if err != nil {
			return fmt.Errorf("debit source envelope: %w", err)
		}
		to, err := s.storage.ApplyEnvelopeDelta(ctx, tx, toID, amountCents)
		if err != nil {
			return fmt.Errorf("credit destination envelope: %w", err)
		}

		receipt = core.TransferReceipt{From: from, To: to}
		return nil
	})
	if err != nil {
		return core.TransferReceipt{}, err
	}

	slog.InfoContext(ctx, "Transfer applied",
		"from_id", fromID,
		"to_id", toID,
		"amount_cents", amountCents)

	s.publishEvent(ctx, amqp.NewLedgerEvent(amqp.EventTransfer, 0, fromID, toID))
	return receipt, nil
}

// GetTransaction returns a single transaction record.
func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

// ListTransactions returns all transaction records ordered by id.
func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx)
}

// publishEvent notifies consumers best-effort after a commit. The unit of
// work already succeeded, so a broker failure only logs.
func (s *LedgerService) publishEvent(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", ev.Kind,
			"transaction_id", ev.TransactionID,
			"error", err)
	}
}
