// Package memory provides an in-process ports.Ledger for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"bepay-gateway/internal/core/domain"
	"bepay-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// Ledger keeps transactions in a map guarded by an RWMutex. Records are
// copied in and out so callers never alias stored state.
type Ledger struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]domain.Transaction
}

var _ ports.Ledger = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{txs: make(map[uuid.UUID]domain.Transaction)}
}

func (l *Ledger) Insert(_ context.Context, t *domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.txs[t.ID]; exists {
		return domain.ErrDuplicateTransaction
	}
	l.txs[t.ID] = *t
	return nil
}

func (l *Ledger) Get(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.txs[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (l *Ledger) UpdateStatus(_ context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.txs[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	t.Status = status
	l.txs[id] = t
	return nil
}

// List returns up to limit records ordered by CreatedAt descending. Ties are
// broken by id so the order is stable across calls.
func (l *Ledger) List(_ context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		return []domain.Transaction{}, nil
	}

	l.mu.RLock()
	out := make([]domain.Transaction, 0, len(l.txs))
	for _, t := range l.txs {
		out = append(out, t)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping reports healthy; the map has no external dependency.
func (l *Ledger) Ping(context.Context) error { return nil }

func (l *Ledger) Name() string { return "memory" }
