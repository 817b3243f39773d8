// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/api"
	"github.com/andresuchdata/exportops/backend-go/internal/cache"
	"github.com/andresuchdata/exportops/backend-go/internal/config"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/rates"
	"github.com/andresuchdata/exportops/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/exportops/backend-go/internal/service"
	"github.com/andresuchdata/exportops/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	if cfg.Server.LogFormat == "json" {
		logger.UseJSON(os.Stdout)
	}
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	rateStore, err := cache.NewRateCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Rate cache unavailable, using in-process snapshot only")
		rateStore = nil
	}
	breakdownCache, err := cache.NewBreakdownCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Breakdown cache unavailable, caching disabled")
		breakdownCache = cache.NewNoopBreakdownCache()
	}

	ratesRepo := rates.NewCache(postgres.NewRatesRepository(db), rateStore)

	services := &api.Services{
		ExportService: service.NewExportService(postgres.NewLinesRepository(db), ratesRepo, breakdownCache),
		InvoiceService: service.NewInvoiceService(
			postgres.NewInvoiceSourceRepository(db),
			ratesRepo,
			service.InvoiceSettingsFromConfig(cfg.Invoices),
		),
		ReconciliationService: service.NewReconciliationService(
			postgres.NewReconciliationRepository(db),
			domain.RiskThresholds{
				MinMarginRatePct: cfg.Reconciliation.MinMarginRatePct,
				MinMarginAmount:  cfg.Reconciliation.MinMarginAmount,
			},
		),
		Ping: db.PingContext,
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
