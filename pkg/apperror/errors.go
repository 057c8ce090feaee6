package apperror

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"error"`
	Detail     string `json:"message,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of e carrying a client-facing detail message.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Request Validation (VAL) ----

func ErrInvalidRequest() *AppError {
	return New("VAL_001", "Invalid request", http.StatusBadRequest)
}

func ErrMissingFields(fields []string) *AppError {
	return New("VAL_001", "Missing required fields", http.StatusBadRequest).
		WithDetail("Required fields: " + strings.Join(fields, ", "))
}

func ErrUnsupportedContentType() *AppError {
	return New("VAL_002", "Invalid request", http.StatusBadRequest).
		WithDetail("Content-Type must be application/json")
}

func ErrPayloadTooLarge() *AppError {
	return New("VAL_003", "Request body too large", http.StatusRequestEntityTooLarge)
}

func ErrRouteNotFound() *AppError {
	return New("HTTP_404", "Not found", http.StatusNotFound).
		WithDetail("The requested resource was not found")
}

// ---- Transactions (TXN) ----

func ErrDuplicateTransaction(err error) *AppError {
	return Wrap("TXN_003", "Duplicate transaction", http.StatusConflict, err)
}

// ---- Security (SEC) ----

func ErrAPIKeyRequired() *AppError {
	return New("SEC_001", "API key is required", http.StatusUnauthorized).
		WithDetail("Please provide X-API-Key header")
}

func ErrInvalidAPIKey() *AppError {
	return New("SEC_002", "Invalid API key", http.StatusForbidden).
		WithDetail("The provided API key is invalid")
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrStorageFailure(err error) *AppError {
	return Wrap("SYS_001", "Internal storage error", http.StatusInternalServerError, err)
}

func ErrLockUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Transaction is busy, retry later", http.StatusServiceUnavailable, err)
}

func ErrCardProtection(err error) *AppError {
	return Wrap("SYS_003", "Card data protection failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
