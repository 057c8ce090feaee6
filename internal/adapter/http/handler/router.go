package handler

import (
	"bepay-gateway/internal/adapter/http/dto"
	"bepay-gateway/internal/adapter/http/middleware"
	"bepay-gateway/internal/adapter/metrics"
	"bepay-gateway/internal/core/ports"
	"bepay-gateway/pkg/apperror"
	"bepay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Engine           ports.PaymentEngine
	APIKeyVerifier   ports.APIKeyVerifier
	RequireAPIKey    bool
	RateLimitStore   middleware.Limiter // nil = rate limiting disabled
	RateLimitRules   map[string]middleware.RateLimitRule
	HealthCheckers   []ports.HealthChecker
	AuditSvc         ports.AuditService // nil = audit logging disabled
	Metrics          *metrics.Collector // nil = no /metrics
	ListLimitDefault int
	ListLimitMax     int
	Version          string
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperror.ErrRouteNotFound())
	})

	version := deps.Version
	if version == "" {
		version = "1.0.0"
	}
	r.GET("/", ServiceInfo(version))

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := deps.RateLimitRules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	api := r.Group("/api")
	api.GET("/health", HealthCheck(deps.HealthCheckers...))

	apiKey := middleware.APIKeyAuth(deps.RequireAPIKey, deps.APIKeyVerifier, deps.Logger)
	payments := NewPaymentHandler(deps.Engine, deps.ListLimitDefault, deps.ListLimitMax)

	secured := api.Group("", apiKey)
	{
		secured.POST("/payment", rl(middleware.GroupCharge), middleware.RequireJSON(dto.ChargeFields...), payments.Charge)
		secured.POST("/refund/:id", rl(middleware.GroupRefund), payments.Refund)
		secured.GET("/transaction/:id", rl(middleware.GroupRead), payments.GetTransaction)
		secured.GET("/transactions", rl(middleware.GroupRead), payments.ListTransactions)
	}

	return r
}
