package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	statuses := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusSuccess,
		TransactionStatusFailed,
		TransactionStatusRefunded,
	}
	allowed := map[[2]TransactionStatus]bool{
		{TransactionStatusPending, TransactionStatusSuccess}:  true,
		{TransactionStatusPending, TransactionStatusFailed}:   true,
		{TransactionStatusSuccess, TransactionStatusRefunded}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			err := CanTransition(from, to)
			if allowed[[2]TransactionStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			var ite *IllegalTransitionError
			require.True(t, errors.As(err, &ite), "%s -> %s", from, to)
			assert.Equal(t, from, ite.From)
			assert.Equal(t, to, ite.To)
		}
	}
}

func TestTransaction_TransitionTo(t *testing.T) {
	tx := &Transaction{Status: TransactionStatusPending}

	require.NoError(t, tx.TransitionTo(TransactionStatusSuccess))
	assert.True(t, tx.IsRefundable())

	require.NoError(t, tx.TransitionTo(TransactionStatusRefunded))
	assert.False(t, tx.IsRefundable())

	err := tx.TransitionTo(TransactionStatusRefunded)
	assert.Error(t, err)
	assert.Equal(t, TransactionStatusRefunded, tx.Status, "status must not change on rejection")
}

func TestTransaction_IsRefundable(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   bool
	}{
		{TransactionStatusPending, false},
		{TransactionStatusSuccess, true},
		{TransactionStatusFailed, false},
		{TransactionStatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			tx := &Transaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsRefundable())
		})
	}
}

func TestNewTransaction(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("UTC+2", 2*3600))
	tx := NewTransaction(NewTransactionParams{
		Amount:         decimal.RequireFromString("100.00"),
		Currency:       "usd",
		CardNumber:     "4532 0151 1283 0366",
		CVV:            "123",
		Expiry:         Expiry{Month: 12, Year: 2025},
		CardholderName: "John Doe",
		Description:    "Test payment",
	}, now)

	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, TransactionStatusPending, tx.Status)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, "4532015112830366", tx.CardNumber)
	assert.Equal(t, 12, tx.ExpiryMonth)
	assert.Equal(t, 2025, tx.ExpiryYear)
	assert.Equal(t, time.UTC, tx.CreatedAt.Location())
	assert.True(t, tx.CreatedAt.Equal(now))

	other := NewTransaction(NewTransactionParams{Amount: decimal.NewFromInt(1)}, now)
	assert.NotEqual(t, tx.ID, other.ID)
}

func TestMaskCardNumber(t *testing.T) {
	for _, number := range []string{"4532015112830366", "4222222222222", "6011000990139424124", "1234"} {
		masked := MaskCardNumber(number)
		assert.Len(t, masked, len(number))
		assert.True(t, strings.HasSuffix(masked, number[len(number)-4:]))
		assert.Equal(t, strings.Repeat("*", len(number)-4), masked[:len(number)-4])
	}

	assert.Equal(t, "************0366", MaskCardNumber("4532015112830366"))
	assert.Equal(t, "****", MaskCardNumber("123"))
	assert.Equal(t, "****", MaskCardNumber(""))
}

func TestTransactionStatus_Constants(t *testing.T) {
	assert.Equal(t, TransactionStatus("pending"), TransactionStatusPending)
	assert.Equal(t, TransactionStatus("success"), TransactionStatusSuccess)
	assert.Equal(t, TransactionStatus("failed"), TransactionStatusFailed)
	assert.Equal(t, TransactionStatus("refunded"), TransactionStatusRefunded)
}

func TestNewTransactionEvent(t *testing.T) {
	tx := &Transaction{
		ID:         uuid.New(),
		Amount:     decimal.NewFromInt(42),
		Currency:   "EUR",
		CardNumber: "4532015112830366",
		Status:     TransactionStatusSuccess,
	}
	at := time.Now()

	ev := NewTransactionEvent(EventTransactionCharged, tx, at)
	assert.Equal(t, EventTransactionCharged, ev.Type)
	assert.Equal(t, tx.ID, ev.TransactionID)
	assert.True(t, ev.Amount.Equal(tx.Amount))
	assert.Equal(t, TransactionStatusSuccess, ev.Status)
}
