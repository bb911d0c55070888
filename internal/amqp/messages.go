package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds published by the ledger engine.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionAmended = "transaction.amended"
	EventTransactionRemoved = "transaction.removed"
	EventTransfer           = "envelope.transfer"
)

// LedgerEvent is a lightweight notification that a ledger operation committed.
// It carries ids only; consumers fetch current state from the database, so a
// stale or replayed event can never undo a balance.
type LedgerEvent struct {
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	EnvelopeIDs   []int64   `json:"envelope_ids"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind string, transactionID int64, envelopeIDs ...int64) *LedgerEvent {
	return &LedgerEvent{
		Kind:          kind,
		TransactionID: transactionID,
		EnvelopeIDs:   envelopeIDs,
		Timestamp:     time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	switch ev.Kind {
	case EventTransactionCreated, EventTransactionAmended, EventTransactionRemoved, EventTransfer:
	default:
		return nil, fmt.Errorf("unknown ledger event kind %q", ev.Kind)
	}
	return &ev, nil
}
