package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bepay-gateway/internal/core/domain"
	"bepay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prefixProtector marks stored values so tests can see the protector ran.
type prefixProtector struct{}

func (prefixProtector) Protect(s string) (string, error) { return "p:" + s, nil }
func (prefixProtector) Reveal(s string) (string, error)  { return strings.TrimPrefix(s, "p:"), nil }

type failingProtector struct{}

func (failingProtector) Protect(string) (string, error) { return "", errors.New("key unavailable") }
func (failingProtector) Reveal(string) (string, error)  { return "", errors.New("key unavailable") }

func newTestTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:             uuid.New(),
		Amount:         decimal.RequireFromString("100.50"),
		Currency:       "USD",
		CardNumber:     "4532015112830366",
		CVV:            "123",
		ExpiryMonth:    12,
		ExpiryYear:     2025,
		CardholderName: "John Doe",
		Description:    "Order #1001",
		Status:         domain.TransactionStatusSuccess,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func txColumns() []string {
	return []string{"id", "amount", "currency", "card_number", "cvv", "expiry_month", "expiry_year",
		"cardholder_name", "description", "status", "created_at"}
}

func addTxRow(rows *pgxmock.Rows, t *domain.Transaction) *pgxmock.Rows {
	return rows.AddRow(
		t.ID, t.Amount.String(), t.Currency, "p:"+t.CardNumber, "p:"+t.CVV, t.ExpiryMonth, t.ExpiryYear,
		t.CardholderName, t.Description, string(t.Status), t.CreatedAt,
	)
}

func TestLedgerRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})
	txn := newTestTransaction()

	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(
			txn.ID, "100.5", "USD", "p:4532015112830366", "p:123", 12, 2025,
			"John Doe", "Order #1001", "success", txn.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Insert(context.Background(), txn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_SubCentAmountRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})
	txn := newTestTransaction()
	txn.Amount = decimal.RequireFromString("100.555")

	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(
			txn.ID, "100.555", "USD", "p:4532015112830366", "p:123", 12, 2025,
			"John Doe", "Order #1001", "success", txn.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(addTxRow(pgxmock.NewRows(txColumns()), txn))

	require.NoError(t, repo.Insert(context.Background(), txn))
	got, err := repo.Get(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.555", got.Amount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_Insert_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})

	mock.ExpectExec("INSERT INTO transactions").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err = repo.Insert(context.Background(), newTestTransaction())
	assert.ErrorIs(t, err, domain.ErrDuplicateTransaction)
}

func TestLedgerRepo_Insert_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})

	mock.ExpectExec("INSERT INTO transactions").WillReturnError(errors.New("connection refused"))

	err = repo.Insert(context.Background(), newTestTransaction())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateTransaction)
}

func TestLedgerRepo_Insert_ProtectorFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, failingProtector{})

	err = repo.Insert(context.Background(), newTestTransaction())

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SYS_003", appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing is written when protection fails")
}

func TestLedgerRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})
	txn := newTestTransaction()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(addTxRow(pgxmock.NewRows(txColumns()), txn))

	got, err := repo.Get(context.Background(), txn.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, txn.ID, got.ID)
	assert.True(t, txn.Amount.Equal(got.Amount))
	assert.Equal(t, "4532015112830366", got.CardNumber)
	assert.Equal(t, "123", got.CVV)
	assert.Equal(t, 12, got.ExpiryMonth)
	assert.Equal(t, domain.TransactionStatusSuccess, got.Status)
	assert.Equal(t, txn.CreatedAt, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	got, err := repo.Get(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestLedgerRepo_Get_RevealFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, failingProtector{})
	txn := newTestTransaction()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(txn.ID).
		WillReturnRows(addTxRow(pgxmock.NewRows(txColumns()), txn))

	_, err = repo.Get(context.Background(), txn.ID)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SYS_003", appErr.Code)
}

func TestLedgerRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})
	id := uuid.New()

	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs("refunded", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.UpdateStatus(context.Background(), id, domain.TransactionStatusRefunded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})

	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs("refunded", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), uuid.New(), domain.TransactionStatusRefunded)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestLedgerRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})
	newer := newTestTransaction()
	older := newTestTransaction()
	older.CreatedAt = newer.CreatedAt.Add(-time.Minute)
	older.Status = domain.TransactionStatusRefunded

	rows := pgxmock.NewRows(txColumns())
	addTxRow(rows, newer)
	addTxRow(rows, older)

	mock.ExpectQuery("SELECT .+ FROM transactions ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
	assert.Equal(t, domain.TransactionStatusRefunded, got[1].Status)
	assert.Equal(t, "4532015112830366", got[1].CardNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_List_NonPositiveLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})

	got, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_List_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock, prefixProtector{})

	mock.ExpectQuery("SELECT .+ FROM transactions ORDER BY").
		WithArgs(5).
		WillReturnError(errors.New("statement timeout"))

	_, err = repo.List(context.Background(), 5)
	assert.Error(t, err)
}
