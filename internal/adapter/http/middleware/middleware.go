package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"bepay-gateway/internal/core/ports"
	"bepay-gateway/pkg/apperror"
	"bepay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderAPIKey    = "X-API-Key"
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxRequestID = "request_id"
	CtxAPIKey    = "api_key"
)

// RequestID tags every request with an id, reusing a caller-supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// APIKeyAuth gates a route on the X-API-Key header. When required is false
// every request passes through.
func APIKeyAuth(required bool, verifier ports.APIKeyVerifier, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !required {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderAPIKey)
		if key == "" {
			response.Abort(c, apperror.ErrAPIKeyRequired())
			return
		}
		if !verifier.Verify(key) {
			log.Warn().
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Msg("rejected invalid api key")
			response.Abort(c, apperror.ErrInvalidAPIKey())
			return
		}

		c.Set(CtxAPIKey, key)
		c.Next()
	}
}

// RequireJSON rejects non-JSON bodies and bodies missing any of fields.
// Presence is by key: an explicit null still counts as present. The body is
// restored so the handler can bind it again.
func RequireJSON(fields ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isJSON(c.GetHeader("Content-Type")) {
			response.Abort(c, apperror.ErrUnsupportedContentType())
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Abort(c, apperror.ErrPayloadTooLarge())
				return
			}
			response.Abort(c, apperror.ErrInvalidRequest().WithDetail("cannot read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var payload map[string]json.RawMessage
		if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
			response.Abort(c, apperror.ErrInvalidRequest().WithDetail("Request body must be a JSON object"))
			return
		}

		var missing []string
		for _, f := range fields {
			if _, ok := payload[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			response.Abort(c, apperror.ErrMissingFields(missing))
			return
		}

		c.Next()
	}
}

// isJSON accepts application/json and any +json media type.
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// MaxBodySize caps the request body. Declared oversize bodies are rejected
// up front; undeclared ones fail when read.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Abort(c, apperror.ErrPayloadTooLarge())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Str("request_id", c.GetString(CtxRequestID)).
					Msg("panic recovered")
				response.Abort(c, apperror.InternalError(nil))
			}
		}()
		c.Next()
	}
}
