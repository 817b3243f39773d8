package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/exportops/backend-go/internal/api/middleware"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouterRegistersRoutes(t *testing.T) {
	services := &Services{
		ExportService:         service.NewExportService(nil, nil, nil),
		InvoiceService:        service.NewInvoiceService(nil, nil, service.InvoiceSettings{}),
		ReconciliationService: service.NewReconciliationService(nil, domain.RiskThresholds{}),
	}
	router := NewRouter(services, nil)

	registered := map[string]bool{}
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /api/v1/health",
		"GET /api/v1/export/breakdown",
		"POST /api/v1/export/estimate",
		"GET /api/v1/rates",
		"POST /api/v1/rates/invalidate",
		"GET /api/v1/invoices",
		"GET /api/v1/invoices/kpis",
		"GET /api/v1/invoices/alerts",
		"GET /api/v1/invoices/top_clients",
		"GET /api/v1/reconciliation/cases",
		"GET /api/v1/reconciliation/risks",
		"GET /api/v1/reconciliation/summary",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestHealth(t *testing.T) {
	router := NewRouter(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthReportsUnreachableStore(t *testing.T) {
	router := NewRouter(&Services{Ping: func(context.Context) error { return errors.New("dial tcp: refused") }}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"database unreachable","details":"dial tcp: refused"}`, w.Body.String())
}

func TestCORSAllowedOrigins(t *testing.T) {
	router := NewRouter(nil, []string{"https://ops.example.com, https://bi.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://bi.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://bi.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{" a.com ,b.com", "", "*"})
	assert.Equal(t, []string{"a.com", "b.com"}, origins)
	assert.True(t, all)
}

func TestRecoveryAnswersJSON(t *testing.T) {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}
