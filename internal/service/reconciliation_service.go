package service

import (
	"context"
	"fmt"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/reconciliation"
	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ReconciliationService struct {
	repo       repository.ReconciliationRepository
	thresholds domain.RiskThresholds
}

func NewReconciliationService(repo repository.ReconciliationRepository, thresholds domain.RiskThresholds) *ReconciliationService {
	if thresholds == (domain.RiskThresholds{}) {
		thresholds = domain.DefaultRiskThresholds()
	}
	return &ReconciliationService{repo: repo, thresholds: thresholds}
}

// Run loads client invoices and cost documents and reconciles them.
func (s *ReconciliationService) Run(ctx context.Context, filter domain.ReconciliationFilter) (*domain.ReconciliationResult, error) {
	var (
		invoices []domain.ClientInvoice
		docs     []domain.CostDoc
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.repo.GetClientInvoices(gctx, filter)
		if err != nil {
			return fmt.Errorf("load client invoices: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		docs, err = s.repo.GetCostDocs(gctx, filter)
		if err != nil {
			return fmt.Errorf("load cost documents: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := reconciliation.Reconcile(invoices, docs, s.thresholds)
	log.Debug().
		Int("invoices", len(invoices)).
		Int("documents", len(docs)).
		Int("unmatched", len(result.UnmatchedDocs)).
		Msg("reconciliation: run complete")
	return &result, nil
}

// GetRisks returns the cases carrying tag, or any tag when tag is empty.
func (s *ReconciliationService) GetRisks(ctx context.Context, filter domain.ReconciliationFilter, tag domain.RiskTag) ([]domain.ReconciliationCase, error) {
	result, err := s.Run(ctx, filter)
	if err != nil {
		return nil, err
	}
	return reconciliation.RiskCases(result.Cases, tag), nil
}

func (s *ReconciliationService) GetSummary(ctx context.Context, filter domain.ReconciliationFilter) (*domain.CaseAggregates, error) {
	result, err := s.Run(ctx, filter)
	if err != nil {
		return nil, err
	}
	agg := reconciliation.AggregateCases(result.Cases)
	return &agg, nil
}
