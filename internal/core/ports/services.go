package ports

import (
	"context"
	"time"

	"bepay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// --- Engine collaborators ---

// Authorizer decides whether a structurally valid charge is approved by the card network.
type Authorizer interface {
	Authorize(ctx context.Context, t *domain.Transaction) (bool, error)
}

// Clock supplies the reference time for expiry checks and record timestamps.
type Clock interface {
	Now() time.Time
}

// RefundLocker serializes the read-check-write refund sequence per transaction id.
type RefundLocker interface {
	// Lock blocks until the id is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, id uuid.UUID) (func(), error)
}

// CardDataProtector converts sensitive card fields to and from their stored form.
// Ledger adapters apply it; the engine never sees the stored form.
type CardDataProtector interface {
	Protect(plaintext string) (string, error)
	Reveal(stored string) (string, error)
}

// EventPublisher emits ledger changes to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransactionEvent) error
}

// PaymentMetrics records engine outcomes.
type PaymentMetrics interface {
	ObserveCharge(outcome string)
	ObserveRefund(outcome string)
}

// --- Service Ports (Business Logic) ---

// PaymentEngine validates, authorizes, and records card charges and refunds.
// Validation and state-machine failures are reported in the result; the error
// return is reserved for infrastructure faults.
type PaymentEngine interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, transactionID string) (*RefundResult, error)
	// GetTransaction returns nil, nil when the id is unknown.
	GetTransaction(ctx context.Context, transactionID string) (*TransactionView, error)
	ListTransactions(ctx context.Context, limit int) ([]TransactionView, error)
}

// ChargeRequest holds raw charge input as received from the transport.
type ChargeRequest struct {
	Amount         string
	Currency       string
	CardNumber     string
	CVV            string
	ExpiryDate     string
	CardholderName string
	Description    string
}

// ChargeResult is the outcome of a charge attempt.
type ChargeResult struct {
	Success       bool
	TransactionID *uuid.UUID // nil when validation rejected the request
	Amount        decimal.Decimal
	Currency      string
	Status        domain.TransactionStatus
	CreatedAt     time.Time
	Error         string
	Field         string // input field that failed validation
}

// RefundResult is the outcome of a refund attempt.
type RefundResult struct {
	Success       bool
	TransactionID string
	Status        domain.TransactionStatus
	Error         string
}

// TransactionView is the display-safe projection of a transaction.
type TransactionView struct {
	ID               uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	MaskedCardNumber string
	CardholderName   string
	Description      string
	Status           domain.TransactionStatus
	CreatedAt        time.Time
}

// --- Security ---

// HashService handles secret hashing (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// APIKeyVerifier checks a presented API key.
type APIKeyVerifier interface {
	Verify(key string) bool
}

// AuditService records audit entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
