package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransactionNotFound is returned by ledgers when an id is unknown.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrDuplicateTransaction is returned by ledgers when an id already exists.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
)

// ValidationError describes malformed or out-of-range charge input.
// Reason is safe to show to API clients and never contains card data.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IllegalTransitionError is returned when a status change is not permitted.
type IllegalTransitionError struct {
	From TransactionStatus
	To   TransactionStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}
