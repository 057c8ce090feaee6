package ports

import (
	"context"

	"bepay-gateway/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// Ledger is the durable keyed store of transactions. Every method is a single
// atomic unit against the backing store. It does not enforce status transitions.
type Ledger interface {
	// Insert persists a new transaction; domain.ErrDuplicateTransaction if the id exists.
	Insert(ctx context.Context, t *domain.Transaction) error
	// Get returns nil, nil when the id is unknown.
	Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// UpdateStatus overwrites the status; domain.ErrTransactionNotFound if the id is unknown.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error
	// List returns up to limit transactions, newest first.
	List(ctx context.Context, limit int) ([]domain.Transaction, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
