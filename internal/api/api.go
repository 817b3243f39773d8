// internal/api/api.go
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/api/handlers"
	"github.com/andresuchdata/exportops/backend-go/internal/api/middleware"
	"github.com/andresuchdata/exportops/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Services struct {
	ExportService         *service.ExportService
	InvoiceService        *service.InvoiceService
	ReconciliationService *service.ReconciliationService

	// Ping reports store reachability on /health. Optional.
	Ping func(ctx context.Context) error
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	var ping func(ctx context.Context) error
	if services != nil {
		ping = services.Ping
	}
	router.GET("/health", healthHandler(ping))
	apiGroup.GET("/health", healthHandler(ping))

	if services == nil {
		return router
	}

	if services.ExportService != nil {
		exportHandler := handlers.NewExportHandler(services.ExportService)
		exportGroup := apiGroup.Group("/export")
		{
			exportGroup.GET("/breakdown", exportHandler.GetBreakdown)
			exportGroup.POST("/estimate", exportHandler.Estimate)
		}

		ratesGroup := apiGroup.Group("/rates")
		{
			ratesGroup.GET("", exportHandler.GetRates)
			ratesGroup.POST("/invalidate", exportHandler.InvalidateRates)
		}
	}

	if services.InvoiceService != nil {
		invoiceHandler := handlers.NewInvoiceHandler(services.InvoiceService)
		invoiceGroup := apiGroup.Group("/invoices")
		{
			invoiceGroup.GET("", invoiceHandler.GetInvoices)
			invoiceGroup.GET("/kpis", invoiceHandler.GetKPIs)
			invoiceGroup.GET("/alerts", invoiceHandler.GetAlerts)
			invoiceGroup.GET("/top_clients", invoiceHandler.GetTopClients)
		}
	}

	if services.ReconciliationService != nil {
		reconHandler := handlers.NewReconciliationHandler(services.ReconciliationService)
		reconGroup := apiGroup.Group("/reconciliation")
		{
			reconGroup.GET("/cases", reconHandler.GetCases)
			reconGroup.GET("/risks", reconHandler.GetRisks)
			reconGroup.GET("/summary", reconHandler.GetSummary)
		}
	}

	return router
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				errorResponse(c, http.StatusServiceUnavailable, "database unreachable", err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func errorResponse(c *gin.Context, statusCode int, message string, err error) {
	log.Error().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message, "details": err.Error()})
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
