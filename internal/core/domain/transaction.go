package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a card transaction.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusRefunded TransactionStatus = "refunded"
)

// CanTransition is the single source of truth for status changes.
//
// Allowed transitions:
//   - pending -> success, failed
//   - success -> refunded
//
// Everything else yields an *IllegalTransitionError.
func CanTransition(from, to TransactionStatus) error {
	switch from {
	case TransactionStatusPending:
		if to == TransactionStatusSuccess || to == TransactionStatusFailed {
			return nil
		}
	case TransactionStatusSuccess:
		if to == TransactionStatusRefunded {
			return nil
		}
	}
	return &IllegalTransitionError{From: from, To: to}
}

// Transaction is one payment attempt recorded in the ledger.
// CardNumber and CVV hold raw values; only MaskedCardNumber may leave the core.
type Transaction struct {
	ID             uuid.UUID         `json:"transaction_id"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	CardNumber     string            `json:"-"`
	CVV            string            `json:"-"`
	ExpiryMonth    int               `json:"expiry_month"`
	ExpiryYear     int               `json:"expiry_year"`
	CardholderName string            `json:"cardholder_name"`
	Description    string            `json:"description"`
	Status         TransactionStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewTransactionParams carries already-validated charge input.
type NewTransactionParams struct {
	Amount         decimal.Decimal
	Currency       string
	CardNumber     string
	CVV            string
	Expiry         Expiry
	CardholderName string
	Description    string
}

// NewTransaction builds a pending transaction with a fresh id.
func NewTransaction(p NewTransactionParams, now time.Time) *Transaction {
	return &Transaction{
		ID:             uuid.New(),
		Amount:         p.Amount,
		Currency:       strings.ToUpper(p.Currency),
		CardNumber:     NormalizeCardNumber(p.CardNumber),
		CVV:            p.CVV,
		ExpiryMonth:    p.Expiry.Month,
		ExpiryYear:     p.Expiry.Year,
		CardholderName: p.CardholderName,
		Description:    p.Description,
		Status:         TransactionStatusPending,
		CreatedAt:      now.UTC(),
	}
}

// TransitionTo moves the transaction to status if CanTransition allows it.
func (t *Transaction) TransitionTo(status TransactionStatus) error {
	if err := CanTransition(t.Status, status); err != nil {
		return err
	}
	t.Status = status
	return nil
}

// IsRefundable returns true if this transaction can be refunded.
func (t *Transaction) IsRefundable() bool {
	return CanTransition(t.Status, TransactionStatusRefunded) == nil
}

// MaskedCardNumber returns the display-safe card number.
func (t *Transaction) MaskedCardNumber() string {
	return MaskCardNumber(t.CardNumber)
}

// MaskCardNumber replaces all but the last four characters with '*'.
// Inputs shorter than four characters are fully hidden as "****".
func MaskCardNumber(number string) string {
	r := []rune(number)
	if len(r) < 4 {
		return "****"
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
