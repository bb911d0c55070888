package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Money is an exact monetary amount in cents. All arithmetic on balances
	// happens in cents so repeated amendments and transfers never drift.
	Money struct {
		Cents int64
	}

	// Envelope is a named budget bucket with a current balance.
	Envelope struct {
		ID     int64
		Title  string
		Budget Money
	}

	// Transaction is a recorded debit event tied to exactly one envelope.
	// A positive PaymentAmount reduces the envelope's balance.
	Transaction struct {
		ID            int64
		Date          time.Time
		Description   string
		PaymentAmount Money
		EnvelopeID    int64
	}

	// TransferReceipt holds both envelopes as they stand after a transfer.
	TransferReceipt struct {
		From Envelope
		To   Envelope
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyDescription = errors.New("empty description")
)

func (e Envelope) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	return nil
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}
