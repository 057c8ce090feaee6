package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"bepay-gateway/internal/core/domain"
	"bepay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type plainProtector struct{}

func (plainProtector) Protect(s string) (string, error) { return s, nil }
func (plainProtector) Reveal(s string) (string, error)  { return s, nil }

type brokenProtector struct{}

func (brokenProtector) Protect(string) (string, error) { return "", errors.New("no key") }
func (brokenProtector) Reveal(string) (string, error)  { return "", errors.New("no key") }

var created = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

func testTransaction() *domain.Transaction {
	return &domain.Transaction{
		ID:             uuid.New(),
		Amount:         decimal.RequireFromString("100.50"),
		Currency:       "USD",
		CardNumber:     "4532015112830366",
		CVV:            "123",
		ExpiryMonth:    12,
		ExpiryYear:     2025,
		CardholderName: "John Doe",
		Status:         domain.TransactionStatusSuccess,
		CreatedAt:      created,
	}
}

func docFor(t *domain.Transaction) bson.D {
	amount, _ := primitive.ParseDecimal128(t.Amount.String())
	return bson.D{
		{Key: "_id", Value: t.ID.String()},
		{Key: "amount", Value: amount},
		{Key: "currency", Value: t.Currency},
		{Key: "card_number", Value: t.CardNumber},
		{Key: "cvv", Value: t.CVV},
		{Key: "expiry_month", Value: t.ExpiryMonth},
		{Key: "expiry_year", Value: t.ExpiryYear},
		{Key: "cardholder_name", Value: t.CardholderName},
		{Key: "description", Value: t.Description},
		{Key: "status", Value: string(t.Status)},
		{Key: "created_at", Value: t.CreatedAt},
	}
}

func TestLedgerRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, repo.Insert(context.Background(), testTransaction()))
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Insert(context.Background(), testTransaction())
		assert.ErrorIs(mt, err, domain.ErrDuplicateTransaction)
	})

	mt.Run("insert protector failure", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, brokenProtector{})

		err := repo.Insert(context.Background(), testTransaction())

		var appErr *apperror.AppError
		require.ErrorAs(mt, err, &appErr)
		assert.Equal(mt, "SYS_003", appErr.Code)
	})

	mt.Run("get", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})
		want := testTransaction()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, docFor(want)))

		got, err := repo.Get(context.Background(), want.ID)
		require.NoError(mt, err)
		require.NotNil(mt, got)
		assert.Equal(mt, want.ID, got.ID)
		assert.True(mt, want.Amount.Equal(got.Amount))
		assert.Equal(mt, want.CardNumber, got.CardNumber)
		assert.Equal(mt, want.Status, got.Status)
		assert.True(mt, want.CreatedAt.Equal(got.CreatedAt))
	})

	mt.Run("get not found", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := repo.Get(context.Background(), uuid.New())
		require.NoError(mt, err)
		assert.Nil(mt, got)
	})

	mt.Run("update status", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		assert.NoError(mt, repo.UpdateStatus(context.Background(), uuid.New(), domain.TransactionStatusRefunded))
	})

	mt.Run("update status not found", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.UpdateStatus(context.Background(), uuid.New(), domain.TransactionStatusRefunded)
		assert.ErrorIs(mt, err, domain.ErrTransactionNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})
		newer := testTransaction()
		older := testTransaction()
		older.CreatedAt = created.Add(-time.Hour)
		older.Status = domain.TransactionStatusRefunded

		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, docFor(newer), docFor(older))
		killCursors := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, killCursors)

		got, err := repo.List(context.Background(), 10)
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, newer.ID, got[0].ID)
		assert.Equal(mt, domain.TransactionStatusRefunded, got[1].Status)
	})

	mt.Run("list non-positive limit", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})

		got, err := repo.List(context.Background(), 0)
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		repo := NewLedgerRepo(mt.Coll, plainProtector{})
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, repo.EnsureIndexes(context.Background()))
	})

	mt.Run("health check", func(mt *mtest.T) {
		hc := NewHealthCheck(mt.Client)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.Equal(mt, "mongodb", hc.Name())
		assert.NoError(mt, hc.Ping(context.Background()))
	})
}
