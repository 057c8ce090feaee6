package handler

import (
	"net/http"

	"bepay-gateway/internal/adapter/http/dto"
	"bepay-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const serviceName = "BePay Payment Gateway"

// ServiceInfo serves the API index at GET /.
func ServiceInfo(version string) gin.HandlerFunc {
	body := dto.ServiceInfoResponse{
		Name:    serviceName,
		Version: version,
		Status:  "online",
		Endpoints: map[string]string{
			"process_payment":    "POST /api/payment",
			"get_transaction":    "GET /api/transaction/<id>",
			"refund_transaction": "POST /api/refund/<id>",
			"get_transactions":   "GET /api/transactions",
			"health":             "GET /api/health",
		},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, body)
	}
}

// HealthCheck pings every dependency; any failure reports degraded with 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		message := "Payment gateway is running"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			message = "One or more dependencies are unavailable"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"message":      message,
			"dependencies": deps,
		})
	}
}
