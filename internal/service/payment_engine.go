package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"bepay-gateway/internal/core/domain"
	"bepay-gateway/internal/core/ports"
	"bepay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Outcome labels reported to ports.PaymentMetrics.
const (
	OutcomeSuccess       = "success"
	OutcomeDeclined      = "declined"
	OutcomeRejected      = "rejected"
	OutcomeRefunded      = "refunded"
	OutcomeNotFound      = "not_found"
	OutcomeNotRefundable = "not_refundable"
	OutcomeError         = "error"
)

// Client-facing failure reasons.
const (
	msgInvalidAmount      = "Invalid amount"
	msgInvalidCardNumber  = "Invalid card number"
	msgInvalidCVV         = "Invalid CVV"
	msgInvalidExpiry      = "Invalid or expired card"
	msgDeclined           = "Transaction declined"
	msgNotFound           = "Transaction not found"
	msgOnlySuccessRefunds = "Can only refund successful transactions"
)

// EngineConfig holds the static charge limits.
type EngineConfig struct {
	MinAmount  decimal.Decimal
	MaxAmount  decimal.Decimal
	Currencies []string
}

// EngineDeps groups the engine collaborators. Ledger is required; the rest
// fall back to in-process defaults when nil.
type EngineDeps struct {
	Ledger     ports.Ledger
	Authorizer ports.Authorizer
	Clock      ports.Clock
	Locker     ports.RefundLocker
	Publisher  ports.EventPublisher
	Metrics    ports.PaymentMetrics
}

// Engine implements ports.PaymentEngine.
type Engine struct {
	cfg        EngineConfig
	currencies []string
	ledger     ports.Ledger
	authorizer ports.Authorizer
	clock      ports.Clock
	locker     ports.RefundLocker
	publisher  ports.EventPublisher
	metrics    ports.PaymentMetrics
	log        zerolog.Logger
}

var _ ports.PaymentEngine = (*Engine)(nil)

// NewEngine creates the payment engine.
func NewEngine(cfg EngineConfig, deps EngineDeps, log zerolog.Logger) *Engine {
	e := &Engine{
		cfg:        cfg,
		ledger:     deps.Ledger,
		authorizer: deps.Authorizer,
		clock:      deps.Clock,
		locker:     deps.Locker,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		log:        log.With().Str("component", "payment_engine").Logger(),
	}
	for _, c := range cfg.Currencies {
		e.currencies = append(e.currencies, strings.ToUpper(c))
	}
	if e.authorizer == nil {
		e.authorizer = NewSimulatedAuthorizer()
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	if e.locker == nil {
		e.locker = NewKeyedMutex()
	}
	return e
}

// ==================== Charge ====================

// Charge validates the request, runs authorization, and records the outcome.
// A request rejected by validation is never persisted.
func (e *Engine) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	params, verr := e.validateCharge(req)
	if verr != nil {
		e.observeCharge(OutcomeRejected)
		e.log.Info().
			Str("field", verr.Field).
			Str("reason", verr.Reason).
			Msg("charge rejected")
		return &ports.ChargeResult{Success: false, Error: verr.Reason, Field: verr.Field}, nil
	}

	tx := domain.NewTransaction(params, e.clock.Now())

	approved, err := e.authorizer.Authorize(ctx, tx)
	if err != nil {
		e.log.Warn().Err(err).Str("tx_id", tx.ID.String()).Msg("authorizer failed, declining")
		approved = false
	}

	next := domain.TransactionStatusFailed
	if approved {
		next = domain.TransactionStatusSuccess
	}
	if err := tx.TransitionTo(next); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := e.ledger.Insert(ctx, tx); err != nil {
		e.observeCharge(OutcomeError)
		e.log.Error().Err(err).Str("tx_id", tx.ID.String()).Msg("failed to record charge")
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			return nil, apperror.ErrDuplicateTransaction(err)
		}
		return nil, storageError(err)
	}

	e.publish(ctx, domain.EventTransactionCharged, tx)

	result := &ports.ChargeResult{
		Success:       approved,
		TransactionID: &tx.ID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
	}
	if approved {
		e.observeCharge(OutcomeSuccess)
	} else {
		e.observeCharge(OutcomeDeclined)
		result.Error = msgDeclined
	}

	e.log.Info().
		Str("tx_id", tx.ID.String()).
		Str("amount", tx.Amount.String()).
		Str("currency", tx.Currency).
		Str("status", string(tx.Status)).
		Msg("charge recorded")

	return result, nil
}

// validateCharge applies the checks in order and stops at the first failure.
func (e *Engine) validateCharge(req ports.ChargeRequest) (domain.NewTransactionParams, *domain.ValidationError) {
	var p domain.NewTransactionParams

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return p, &domain.ValidationError{Field: "amount", Reason: msgInvalidAmount}
	}
	if amount.LessThan(e.cfg.MinAmount) {
		return p, &domain.ValidationError{Field: "amount", Reason: "Amount must be at least " + e.cfg.MinAmount.String()}
	}
	if amount.GreaterThan(e.cfg.MaxAmount) {
		return p, &domain.ValidationError{Field: "amount", Reason: "Amount cannot exceed " + e.cfg.MaxAmount.String()}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if !slices.Contains(e.currencies, currency) {
		return p, &domain.ValidationError{Field: "currency", Reason: fmt.Sprintf("Currency must be one of %v", e.currencies)}
	}

	if !domain.ValidateCardNumber(req.CardNumber) {
		return p, &domain.ValidationError{Field: "card_number", Reason: msgInvalidCardNumber}
	}

	if !domain.ValidateCVV(req.CVV) {
		return p, &domain.ValidationError{Field: "cvv", Reason: msgInvalidCVV}
	}

	expiry, err := domain.ParseExpiry(req.ExpiryDate)
	if err != nil || !expiry.ActiveAt(e.clock.Now()) {
		return p, &domain.ValidationError{Field: "expiry_date", Reason: msgInvalidExpiry}
	}

	return domain.NewTransactionParams{
		Amount:         amount,
		Currency:       currency,
		CardNumber:     req.CardNumber,
		CVV:            req.CVV,
		Expiry:         expiry,
		CardholderName: req.CardholderName,
		Description:    req.Description,
	}, nil
}

// ==================== Refund ====================

// Refund moves a successful transaction to refunded. The read-check-write
// sequence runs under the per-id lock so only one concurrent refund wins.
func (e *Engine) Refund(ctx context.Context, transactionID string) (*ports.RefundResult, error) {
	id, err := uuid.Parse(transactionID)
	if err != nil {
		e.observeRefund(OutcomeNotFound)
		return &ports.RefundResult{Success: false, TransactionID: transactionID, Error: msgNotFound}, nil
	}

	unlock, err := e.locker.Lock(ctx, id)
	if err != nil {
		e.observeRefund(OutcomeError)
		e.log.Warn().Err(err).Str("tx_id", transactionID).Msg("refund lock unavailable")
		return nil, apperror.ErrLockUnavailable(err)
	}
	defer unlock()

	tx, err := e.ledger.Get(ctx, id)
	if err != nil {
		e.observeRefund(OutcomeError)
		e.log.Error().Err(err).Str("tx_id", transactionID).Msg("failed to load transaction for refund")
		return nil, storageError(err)
	}
	if tx == nil {
		e.observeRefund(OutcomeNotFound)
		return &ports.RefundResult{Success: false, TransactionID: transactionID, Error: msgNotFound}, nil
	}

	if !tx.IsRefundable() {
		e.observeRefund(OutcomeNotRefundable)
		e.log.Info().
			Str("tx_id", transactionID).
			Str("status", string(tx.Status)).
			Msg("refund rejected")
		return &ports.RefundResult{Success: false, TransactionID: transactionID, Status: tx.Status, Error: msgOnlySuccessRefunds}, nil
	}
	if err := tx.TransitionTo(domain.TransactionStatusRefunded); err != nil {
		e.observeRefund(OutcomeError)
		return nil, apperror.InternalError(err)
	}

	if err := e.ledger.UpdateStatus(ctx, id, tx.Status); err != nil {
		e.observeRefund(OutcomeError)
		e.log.Error().Err(err).Str("tx_id", transactionID).Msg("failed to record refund")
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return &ports.RefundResult{Success: false, TransactionID: transactionID, Error: msgNotFound}, nil
		}
		return nil, storageError(err)
	}

	e.publish(ctx, domain.EventTransactionRefunded, tx)
	e.observeRefund(OutcomeRefunded)
	e.log.Info().Str("tx_id", transactionID).Msg("refund applied")

	return &ports.RefundResult{
		Success:       true,
		TransactionID: tx.ID.String(),
		Status:        tx.Status,
	}, nil
}

// ==================== Queries ====================

// GetTransaction returns the display-safe projection, or nil when unknown.
func (e *Engine) GetTransaction(ctx context.Context, transactionID string) (*ports.TransactionView, error) {
	id, err := uuid.Parse(transactionID)
	if err != nil {
		return nil, nil
	}

	tx, err := e.ledger.Get(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if tx == nil {
		return nil, nil
	}

	view := toView(tx)
	return &view, nil
}

// ListTransactions returns up to limit transactions, newest first.
// Callers are responsible for capping limit.
func (e *Engine) ListTransactions(ctx context.Context, limit int) ([]ports.TransactionView, error) {
	if limit <= 0 {
		return []ports.TransactionView{}, nil
	}

	txs, err := e.ledger.List(ctx, limit)
	if err != nil {
		return nil, storageError(err)
	}

	views := make([]ports.TransactionView, 0, len(txs))
	for i := range txs {
		views = append(views, toView(&txs[i]))
	}
	return views, nil
}

// ==================== Helpers ====================

func toView(tx *domain.Transaction) ports.TransactionView {
	return ports.TransactionView{
		ID:               tx.ID,
		Amount:           tx.Amount,
		Currency:         tx.Currency,
		MaskedCardNumber: tx.MaskedCardNumber(),
		CardholderName:   tx.CardholderName,
		Description:      tx.Description,
		Status:           tx.Status,
		CreatedAt:        tx.CreatedAt,
	}
}

// storageError keeps adapter-level AppErrors (e.g. card protection) and
// wraps everything else as SYS_001.
func storageError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.ErrStorageFailure(err)
}

// publish emits the event after the ledger write. Failures are logged only.
func (e *Engine) publish(ctx context.Context, typ domain.EventType, tx *domain.Transaction) {
	if e.publisher == nil {
		return
	}
	event := domain.NewTransactionEvent(typ, tx, e.clock.Now())
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.log.Warn().Err(err).
			Str("tx_id", tx.ID.String()).
			Str("event", string(typ)).
			Msg("failed to publish transaction event")
	}
}

func (e *Engine) observeCharge(outcome string) {
	if e.metrics != nil {
		e.metrics.ObserveCharge(outcome)
	}
}

func (e *Engine) observeRefund(outcome string) {
	if e.metrics != nil {
		e.metrics.ObserveRefund(outcome)
	}
}
