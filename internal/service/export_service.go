package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/breakdown"
	"github.com/andresuchdata/exportops/backend-go/internal/cache"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/estimator"
	"github.com/andresuchdata/exportops/backend-go/internal/rates"
	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ExportService struct {
	lines repository.LinesRepository
	rates rates.Repository
	cache cache.BreakdownCache
	now   func() time.Time
}

func NewExportService(lines repository.LinesRepository, ratesRepo rates.Repository, cacheImpl cache.BreakdownCache) *ExportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopBreakdownCache()
	}
	return &ExportService{lines: lines, rates: ratesRepo, cache: cacheImpl, now: time.Now}
}

// GetBreakdown loads the filtered lines and the rate snapshot and runs the
// breakdown aggregator. Rate snapshot warnings are appended to the result.
func (s *ExportService) GetBreakdown(ctx context.Context, filters domain.BreakdownFilters) (*domain.ExportBreakdown, error) {
	if cached, ok, err := s.cache.GetBreakdown(ctx, filters); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("export: cache get breakdown failed")
	}

	var (
		sales    []domain.SalesLine
		costs    []domain.CostLine
		snapshot domain.RateSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.lines.GetSalesLines(gctx, filters)
		if err != nil {
			return fmt.Errorf("load sales lines: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		costs, err = s.lines.GetCostLines(gctx, filters)
		if err != nil {
			return fmt.Errorf("load cost lines: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snapshot, err = s.rates.Load(gctx)
		if err != nil {
			return fmt.Errorf("load rates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := breakdown.Compute(breakdown.Input{
		SalesLines: sales,
		CostLines:  costs,
		VatRates:   snapshot.Rates.Vat,
		OmRates:    snapshot.Rates.Om,
		Filters:    filters,
		At:         s.now(),
	})
	result.Warnings = append(result.Warnings, snapshot.Warnings...)

	if err := s.cache.SetBreakdown(ctx, filters, &result); err != nil {
		log.Warn().Err(err).Msg("export: cache set breakdown failed")
	}

	return &result, nil
}

// Estimate prices the export costs of an ad-hoc base amount for a territory.
func (s *ExportService) Estimate(ctx context.Context, req domain.EstimateRequest) (domain.CostComponents, error) {
	snapshot, err := s.rates.Load(ctx)
	if err != nil {
		return domain.CostComponents{}, fmt.Errorf("load rates: %w", err)
	}
	return estimator.Estimate(req.Base, req.Territory, snapshot.Rates, s.now()), nil
}

func (s *ExportService) GetRates(ctx context.Context) (domain.RateSnapshot, error) {
	return s.rates.Load(ctx)
}

// InvalidateRates drops the rate snapshot and every cached breakdown built on it.
func (s *ExportService) InvalidateRates(ctx context.Context) error {
	if err := s.rates.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate rates: %w", err)
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("export: cache invalidate breakdowns failed")
	}
	log.Info().Msg("export: rate snapshot invalidated")
	return nil
}
