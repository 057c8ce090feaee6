package handler

import (
	"net/http"
	"strconv"

	"bepay-gateway/internal/adapter/http/dto"
	"bepay-gateway/internal/adapter/http/middleware"
	"bepay-gateway/internal/core/ports"
	"bepay-gateway/pkg/apperror"
	"bepay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler exposes the payment engine over HTTP.
type PaymentHandler struct {
	engine       ports.PaymentEngine
	listDefault  int
	listMaxLimit int
}

// NewPaymentHandler creates a new PaymentHandler. listDefault applies when
// the limit query parameter is absent or unparsable; listMax caps it.
func NewPaymentHandler(engine ports.PaymentEngine, listDefault, listMax int) *PaymentHandler {
	if listMax < 1 {
		listMax = 1
	}
	if listDefault < 1 || listDefault > listMax {
		listDefault = listMax
	}
	return &PaymentHandler{engine: engine, listDefault: listDefault, listMaxLimit: listMax}
}

// Charge handles POST /api/payment.
func (h *PaymentHandler) Charge(c *gin.Context) {
	var req dto.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidRequest().WithDetail("Request body has fields of the wrong type"))
		return
	}

	result, err := h.engine.Charge(c.Request.Context(), req.ToPort())
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.TransactionID != nil {
		c.Set(middleware.CtxTransactionID, result.TransactionID.String())
	}

	code := http.StatusOK
	if !result.Success {
		code = http.StatusBadRequest
	}
	response.JSON(c, code, dto.FromChargeResult(result))
}

// GetTransaction handles GET /api/transaction/:id.
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	id := c.Param("id")

	view, err := h.engine.GetTransaction(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if view == nil {
		response.JSON(c, http.StatusNotFound, dto.TransactionNotFoundResponse{
			Error:         "Transaction not found",
			TransactionID: id,
		})
		return
	}

	response.OK(c, dto.FromTransactionView(*view))
}

// Refund handles POST /api/refund/:id.
func (h *PaymentHandler) Refund(c *gin.Context) {
	result, err := h.engine.Refund(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	code := http.StatusOK
	if !result.Success {
		code = http.StatusBadRequest
	}
	response.JSON(c, code, dto.FromRefundResult(result))
}

// ListTransactions handles GET /api/transactions?limit=N.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	views, err := h.engine.ListTransactions(c.Request.Context(), h.listLimit(c.Query("limit")))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransactionViews(views))
}

func (h *PaymentHandler) listLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return h.listDefault
	}
	if limit < 1 {
		return 1
	}
	if limit > h.listMaxLimit {
		return h.listMaxLimit
	}
	return limit
}
