package postgres

import (
	"context"
	"errors"
	"fmt"

	"bepay-gateway/internal/core/domain"
	"bepay-gateway/internal/core/ports"
	"bepay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const selectTransaction = `SELECT id, amount::text, currency, card_number, cvv, expiry_month, expiry_year,
	cardholder_name, description, status, created_at
	FROM transactions`

// LedgerRepo implements ports.Ledger on PostgreSQL. Each method is a single
// statement, so every call is atomic on its own.
type LedgerRepo struct {
	pool      Pool
	protector ports.CardDataProtector
}

var _ ports.Ledger = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new LedgerRepo. Card number and CVV pass through
// protector on the way in and out.
func NewLedgerRepo(pool Pool, protector ports.CardDataProtector) *LedgerRepo {
	return &LedgerRepo{pool: pool, protector: protector}
}

// Insert writes a new transaction row.
func (r *LedgerRepo) Insert(ctx context.Context, t *domain.Transaction) error {
	card, err := r.protector.Protect(t.CardNumber)
	if err != nil {
		return apperror.ErrCardProtection(err)
	}
	cvv, err := r.protector.Protect(t.CVV)
	if err != nil {
		return apperror.ErrCardProtection(err)
	}

	query := `INSERT INTO transactions (id, amount, currency, card_number, cvv, expiry_month, expiry_year,
		cardholder_name, description, status, created_at)
		VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.pool.Exec(ctx, query,
		t.ID, t.Amount.String(), t.Currency, card, cvv, t.ExpiryMonth, t.ExpiryYear,
		t.CardholderName, t.Description, string(t.Status), t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert transaction %s: %w", t.ID, domain.ErrDuplicateTransaction)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get fetches a transaction by UUID. Returns nil, nil if absent.
func (r *LedgerRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.scanTransaction(r.pool.QueryRow(ctx, selectTransaction+` WHERE id = $1`, id))
}

// UpdateStatus overwrites the status column.
func (r *LedgerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: %w", id, domain.ErrTransactionNotFound)
	}
	return nil
}

// List fetches the newest transactions first.
func (r *LedgerRepo) List(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		return []domain.Transaction{}, nil
	}

	rows, err := r.pool.Query(ctx, selectTransaction+` ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// scanTransaction scans a single row and reveals the protected card fields.
func (r *LedgerRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t             domain.Transaction
		amount        string
		status        string
		card, cvvText string
	)
	err := row.Scan(
		&t.ID, &amount, &t.Currency, &card, &cvvText, &t.ExpiryMonth, &t.ExpiryYear,
		&t.CardholderName, &t.Description, &status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount of %s: %w", t.ID, err)
	}
	t.Status = domain.TransactionStatus(status)

	if t.CardNumber, err = r.protector.Reveal(card); err != nil {
		return nil, apperror.ErrCardProtection(err)
	}
	if t.CVV, err = r.protector.Reveal(cvvText); err != nil {
		return nil, apperror.ErrCardProtection(err)
	}
	return &t, nil
}
