package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a ledger state change published to downstream consumers.
type EventType string

const (
	EventTransactionCharged  EventType = "transaction.charged"
	EventTransactionRefunded EventType = "transaction.refunded"
)

// TransactionEvent is the outbound notification for a ledger write. It never carries card data.
type TransactionEvent struct {
	Type          EventType         `json:"type"`
	TransactionID uuid.UUID         `json:"transaction_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// NewTransactionEvent snapshots t for publishing.
func NewTransactionEvent(typ EventType, t *Transaction, at time.Time) TransactionEvent {
	return TransactionEvent{
		Type:          typ,
		TransactionID: t.ID,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Status:        t.Status,
		OccurredAt:    at.UTC(),
	}
}
