package memory

import (
	"context"
	"testing"
	"time"

	"bepay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(createdAt time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:         uuid.New(),
		Amount:     decimal.RequireFromString("10.50"),
		Currency:   "USD",
		CardNumber: "4532015112830366",
		CVV:        "123",
		Status:     domain.TransactionStatusSuccess,
		CreatedAt:  createdAt,
	}
}

func TestLedger_InsertAndGet(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	tx := newTx(time.Now())

	require.NoError(t, l.Insert(ctx, tx))

	got, err := l.Get(ctx, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *tx, *got)
}

func TestLedger_InsertDuplicate(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	tx := newTx(time.Now())

	require.NoError(t, l.Insert(ctx, tx))
	assert.ErrorIs(t, l.Insert(ctx, tx), domain.ErrDuplicateTransaction)
}

func TestLedger_GetUnknown(t *testing.T) {
	got, err := NewLedger().Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLedger_CopiesRecords(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	tx := newTx(time.Now())
	require.NoError(t, l.Insert(ctx, tx))

	tx.Status = domain.TransactionStatusFailed
	got, _ := l.Get(ctx, tx.ID)
	assert.Equal(t, domain.TransactionStatusSuccess, got.Status)

	got.Status = domain.TransactionStatusPending
	again, _ := l.Get(ctx, tx.ID)
	assert.Equal(t, domain.TransactionStatusSuccess, again.Status)
}

func TestLedger_UpdateStatus(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	tx := newTx(time.Now())
	require.NoError(t, l.Insert(ctx, tx))

	require.NoError(t, l.UpdateStatus(ctx, tx.ID, domain.TransactionStatusRefunded))

	got, _ := l.Get(ctx, tx.ID)
	assert.Equal(t, domain.TransactionStatusRefunded, got.Status)

	assert.ErrorIs(t, l.UpdateStatus(ctx, uuid.New(), domain.TransactionStatusRefunded), domain.ErrTransactionNotFound)
}

func TestLedger_ListNewestFirst(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		tx := newTx(base.Add(time.Duration(i) * time.Minute))
		ids = append(ids, tx.ID)
		require.NoError(t, l.Insert(ctx, tx))
	}

	got, err := l.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[4], got[0].ID)
	assert.Equal(t, ids[3], got[1].ID)
	assert.Equal(t, ids[2], got[2].ID)

	all, err := l.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestLedger_ListNonPositiveLimit(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Insert(context.Background(), newTx(time.Now())))

	got, err := l.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
