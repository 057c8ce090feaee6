package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"bepay-gateway/internal/core/ports"
)

// ChargeFields lists the body keys a charge request must carry.
var ChargeFields = []string{"amount", "currency", "card_number", "cvv", "expiry_date", "cardholder_name"}

// FlexString accepts a JSON string, number, or null. Numbers keep their
// literal text so "100.10" and 100.10 reach the engine identically.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	// Anything else is handed through and rejected by validation.
	*f = FlexString(data)
	return nil
}

// ChargeRequest is the request body for POST /api/payment.
type ChargeRequest struct {
	Amount         FlexString `json:"amount"`
	Currency       string     `json:"currency"`
	CardNumber     FlexString `json:"card_number"`
	CVV            FlexString `json:"cvv"`
	ExpiryDate     string     `json:"expiry_date"`
	CardholderName string     `json:"cardholder_name"`
	Description    string     `json:"description,omitempty"`
}

// ToPort converts the body into the engine's input type.
func (r ChargeRequest) ToPort() ports.ChargeRequest {
	return ports.ChargeRequest{
		Amount:         string(r.Amount),
		Currency:       r.Currency,
		CardNumber:     string(r.CardNumber),
		CVV:            string(r.CVV),
		ExpiryDate:     r.ExpiryDate,
		CardholderName: r.CardholderName,
		Description:    r.Description,
	}
}

// ChargeResponse is the body of an approved charge.
type ChargeResponse struct {
	Success       bool        `json:"success"`
	TransactionID string      `json:"transaction_id"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	Status        string      `json:"status"`
	CreatedAt     string      `json:"created_at"`
}

// ChargeFailureResponse is the body of a rejected or declined charge.
type ChargeFailureResponse struct {
	Success       bool    `json:"success"`
	Error         string  `json:"error"`
	TransactionID *string `json:"transaction_id"`
}

// RefundResponse is the body of a refund attempt.
type RefundResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

// TransactionResponse is the display projection of a stored transaction.
type TransactionResponse struct {
	TransactionID  string      `json:"transaction_id"`
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency"`
	CardNumber     string      `json:"card_number"`
	CardholderName string      `json:"cardholder_name"`
	Description    string      `json:"description"`
	Status         string      `json:"status"`
	CreatedAt      string      `json:"created_at"`
}

// TransactionNotFoundResponse echoes the id that was looked up.
type TransactionNotFoundResponse struct {
	Error         string `json:"error"`
	TransactionID string `json:"transaction_id"`
}

// TransactionListResponse wraps a newest-first transaction list.
type TransactionListResponse struct {
	Count        int                   `json:"count"`
	Transactions []TransactionResponse `json:"transactions"`
}

// ServiceInfoResponse is served at the API root.
type ServiceInfoResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FromChargeResult builds the success or failure body for a charge outcome.
func FromChargeResult(r *ports.ChargeResult) interface{} {
	if !r.Success {
		resp := ChargeFailureResponse{Error: r.Error}
		if r.TransactionID != nil {
			id := r.TransactionID.String()
			resp.TransactionID = &id
		}
		return resp
	}
	return ChargeResponse{
		Success:       true,
		TransactionID: r.TransactionID.String(),
		Amount:        json.Number(r.Amount.String()),
		Currency:      r.Currency,
		Status:        string(r.Status),
		CreatedAt:     formatTime(r.CreatedAt),
	}
}

func FromRefundResult(r *ports.RefundResult) RefundResponse {
	if !r.Success {
		return RefundResponse{Error: r.Error}
	}
	return RefundResponse{
		Success:       true,
		TransactionID: r.TransactionID,
		Status:        string(r.Status),
	}
}

func FromTransactionView(v ports.TransactionView) TransactionResponse {
	return TransactionResponse{
		TransactionID:  v.ID.String(),
		Amount:         json.Number(v.Amount.String()),
		Currency:       v.Currency,
		CardNumber:     v.MaskedCardNumber,
		CardholderName: v.CardholderName,
		Description:    v.Description,
		Status:         string(v.Status),
		CreatedAt:      formatTime(v.CreatedAt),
	}
}

func FromTransactionViews(views []ports.TransactionView) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(views))
	for _, v := range views {
		items = append(items, FromTransactionView(v))
	}
	return TransactionListResponse{Count: len(items), Transactions: items}
}
