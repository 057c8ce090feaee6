package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bepay-gateway/internal/core/domain"
	"bepay-gateway/internal/core/ports"
	"bepay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// transactionDoc is the stored layout. The transaction id is the document _id.
type transactionDoc struct {
	ID             string               `bson:"_id"`
	Amount         primitive.Decimal128 `bson:"amount"`
	Currency       string               `bson:"currency"`
	CardNumber     string               `bson:"card_number"`
	CVV            string               `bson:"cvv"`
	ExpiryMonth    int                  `bson:"expiry_month"`
	ExpiryYear     int                  `bson:"expiry_year"`
	CardholderName string               `bson:"cardholder_name"`
	Description    string               `bson:"description"`
	Status         string               `bson:"status"`
	CreatedAt      time.Time            `bson:"created_at"`
}

// LedgerRepo implements ports.Ledger on a MongoDB collection.
type LedgerRepo struct {
	coll      *mongo.Collection
	protector ports.CardDataProtector
}

var _ ports.Ledger = (*LedgerRepo)(nil)

func NewLedgerRepo(coll *mongo.Collection, protector ports.CardDataProtector) *LedgerRepo {
	return &LedgerRepo{coll: coll, protector: protector}
}

// EnsureIndexes creates the listing index. Safe to call on every start.
func (r *LedgerRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("created_at_desc"),
	})
	if err != nil {
		return fmt.Errorf("creating transactions index: %w", err)
	}
	return nil
}

func (r *LedgerRepo) Insert(ctx context.Context, t *domain.Transaction) error {
	doc, err := r.toDoc(t)
	if err != nil {
		return err
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert transaction %s: %w", t.ID, domain.ErrDuplicateTransaction)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *LedgerRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var doc transactionDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return r.fromDoc(&doc)
}

func (r *LedgerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"status": string(status)}},
	)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", id, domain.ErrTransactionNotFound)
	}
	return nil
}

func (r *LedgerRepo) List(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		return []domain.Transaction{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]domain.Transaction, 0, len(docs))
	for i := range docs {
		t, err := r.fromDoc(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *LedgerRepo) toDoc(t *domain.Transaction) (*transactionDoc, error) {
	amount, err := primitive.ParseDecimal128(t.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("encode amount: %w", err)
	}
	card, err := r.protector.Protect(t.CardNumber)
	if err != nil {
		return nil, apperror.ErrCardProtection(err)
	}
	cvv, err := r.protector.Protect(t.CVV)
	if err != nil {
		return nil, apperror.ErrCardProtection(err)
	}

	return &transactionDoc{
		ID:             t.ID.String(),
		Amount:         amount,
		Currency:       t.Currency,
		CardNumber:     card,
		CVV:            cvv,
		ExpiryMonth:    t.ExpiryMonth,
		ExpiryYear:     t.ExpiryYear,
		CardholderName: t.CardholderName,
		Description:    t.Description,
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt,
	}, nil
}

func (r *LedgerRepo) fromDoc(doc *transactionDoc) (*domain.Transaction, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction id %q: %w", doc.ID, err)
	}
	amount, err := decimal.NewFromString(doc.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("parse amount of %s: %w", doc.ID, err)
	}
	card, err := r.protector.Reveal(doc.CardNumber)
	if err != nil {
		return nil, apperror.ErrCardProtection(err)
	}
	cvv, err := r.protector.Reveal(doc.CVV)
	if err != nil {
		return nil, apperror.ErrCardProtection(err)
	}

	return &domain.Transaction{
		ID:             id,
		Amount:         amount,
		Currency:       doc.Currency,
		CardNumber:     card,
		CVV:            cvv,
		ExpiryMonth:    doc.ExpiryMonth,
		ExpiryYear:     doc.ExpiryYear,
		CardholderName: doc.CardholderName,
		Description:    doc.Description,
		Status:         domain.TransactionStatus(doc.Status),
		CreatedAt:      doc.CreatedAt.UTC(),
	}, nil
}
