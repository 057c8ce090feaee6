package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCollector_EngineCounters(t *testing.T) {
	c := New()

	c.ObserveCharge("success")
	c.ObserveCharge("success")
	c.ObserveCharge("rejected")
	c.ObserveRefund("refunded")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.charges.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.charges.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refunds.WithLabelValues("refunded")))
}

func TestCollector_Middleware(t *testing.T) {
	c := New()
	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/api/transaction/:id", func(ctx *gin.Context) { ctx.Status(http.StatusNotFound) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/transaction/abc", nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/transaction/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveCharge("success")

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `bepay_charges_total{status="success"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
