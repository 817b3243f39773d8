package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/config"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/invoice"
	"github.com/andresuchdata/exportops/backend-go/internal/rates"
	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// WarningNoInvoiceSource is reported when every candidate source is missing.
const WarningNoInvoiceSource = "aucune source de factures disponible"

var defaultDateColumns = map[string][]string{
	"v_export_invoices_enriched": {"invoice_date", "date"},
	"invoices":                   {"invoice_date", "date", "created_at"},
}

var fallbackDateColumns = []string{"invoice_date", "date", "created_at"}

// InvoiceSettings tunes the invoice fetch chain and the folds over it.
type InvoiceSettings struct {
	Sources             []domain.InvoiceSource
	MaxRows             int
	DefaultPageSize     int
	TransitRatioWarning float64
	TopClientsLimit     int
}

// InvoiceSettingsFromConfig resolves configured source names into ordered
// source descriptors. Unknown names get the generic date column list.
func InvoiceSettingsFromConfig(cfg config.InvoiceConfig) InvoiceSettings {
	sources := make([]domain.InvoiceSource, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		sources = append(sources, domain.InvoiceSource{Name: name})
	}
	return InvoiceSettings{
		Sources:             sources,
		MaxRows:             cfg.MaxRows,
		DefaultPageSize:     cfg.DefaultPageSize,
		TransitRatioWarning: cfg.TransitRatioWarning,
		TopClientsLimit:     cfg.TopClientsLimit,
	}
}

func (s InvoiceSettings) withDefaults() InvoiceSettings {
	if len(s.Sources) == 0 {
		s.Sources = []domain.InvoiceSource{{Name: "v_export_invoices_enriched"}, {Name: "invoices"}}
	}
	sources := make([]domain.InvoiceSource, len(s.Sources))
	for i, src := range s.Sources {
		if len(src.DateColumns) == 0 {
			cols, ok := defaultDateColumns[src.Name]
			if !ok {
				cols = fallbackDateColumns
			}
			src.DateColumns = cols
		}
		if len(src.ClientColumns) == 0 {
			src.ClientColumns = invoice.ClientColumns()
		}
		if len(src.TerritoryColumns) == 0 {
			src.TerritoryColumns = invoice.TerritoryColumns()
		}
		sources[i] = src
	}
	s.Sources = sources
	if s.MaxRows <= 0 {
		s.MaxRows = 5000
	}
	if s.DefaultPageSize <= 0 {
		s.DefaultPageSize = 50
	}
	if s.TransitRatioWarning <= 0 {
		s.TransitRatioWarning = invoice.DefaultTransitRatioThreshold
	}
	if s.TopClientsLimit <= 0 {
		s.TopClientsLimit = invoice.DefaultTopClientsLimit
	}
	return s
}

type InvoiceService struct {
	repo     repository.InvoiceSourceRepository
	rates    rates.Repository
	settings InvoiceSettings
	now      func() time.Time
}

func NewInvoiceService(repo repository.InvoiceSourceRepository, ratesRepo rates.Repository, settings InvoiceSettings) *InvoiceService {
	return &InvoiceService{repo: repo, rates: ratesRepo, settings: settings.withDefaults(), now: time.Now}
}

// FetchInvoices walks the candidate sources and their columns in order
// and returns the first page that can be read. A missing relation or column
// moves on to the next candidate; any other error is returned. When no
// candidate is readable the result is empty and carries a warning.
func (s *InvoiceService) FetchInvoices(ctx context.Context, filter domain.InvoiceFilter, page domain.Pagination) (*domain.InvoiceResult, error) {
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.PageSize <= 0 {
		page.PageSize = s.settings.DefaultPageSize
	}
	if page.PageSize > s.settings.MaxRows {
		page.PageSize = s.settings.MaxRows
	}

	snapshot, err := s.rates.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	warnings := append([]string{}, snapshot.Warnings...)
	rc := invoice.RatesContext{Rates: snapshot.Rates, At: s.now()}

	for _, src := range s.settings.Sources {
		for _, q := range candidateQueries(src, filter) {
			q.Limit = page.PageSize
			q.Offset = page.Offset()

			rows, total, err := s.repo.QueryInvoiceRows(ctx, q)
			if errors.Is(err, repository.ErrSourceMissing) {
				log.Debug().Err(err).Str("source", src.Name).Str("date_column", q.DateColumn).Msg("invoices: candidate unavailable")
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("fetch invoices from %s: %w", src.Name, err)
			}

			return &domain.InvoiceResult{
				Invoices:   invoice.MapRows(rows, src.Name, rc),
				Total:      total,
				Page:       page.Page,
				PageSize:   page.PageSize,
				Source:     src.Name,
				DateColumn: q.DateColumn,
				Warnings:   warnings,
			}, nil
		}
	}

	log.Warn().Int("candidates", len(s.settings.Sources)).Msg("invoices: no source available")
	return &domain.InvoiceResult{
		Invoices: []domain.Invoice{},
		Page:     page.Page,
		PageSize: page.PageSize,
		Warnings: append(warnings, WarningNoInvoiceSource),
	}, nil
}

// candidateQueries expands a source into every column combination to try, in
// order. Client and territory columns only multiply the attempts when their
// filter is set.
func candidateQueries(src domain.InvoiceSource, filter domain.InvoiceFilter) []repository.InvoiceQuery {
	clients := []string{""}
	if filter.ClientID != "" {
		clients = src.ClientColumns
	}
	territories := []string{""}
	if filter.Territory != "" {
		territories = src.TerritoryColumns
	}

	out := make([]repository.InvoiceQuery, 0, len(src.DateColumns)*len(clients)*len(territories))
	for _, date := range src.DateColumns {
		for _, client := range clients {
			for _, territory := range territories {
				out = append(out, repository.InvoiceQuery{
					Source:          src.Name,
					DateColumn:      date,
					ClientColumn:    client,
					TerritoryColumn: territory,
					Filter:          filter,
				})
			}
		}
	}
	return out
}

// fetchAll reads the whole filtered set, bounded by MaxRows.
func (s *InvoiceService) fetchAll(ctx context.Context, filter domain.InvoiceFilter) (*domain.InvoiceResult, error) {
	return s.FetchInvoices(ctx, filter, domain.Pagination{Page: 1, PageSize: s.settings.MaxRows})
}

func (s *InvoiceService) FetchKPIs(ctx context.Context, filter domain.InvoiceFilter) (*domain.KPIResult, error) {
	res, err := s.fetchAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	kpis := invoice.ComputeKPIs(res.Invoices)
	kpis.Source = res.Source
	kpis.Warnings = append(kpis.Warnings, res.Warnings...)
	if res.Total > len(res.Invoices) {
		kpis.Truncated = true
		kpis.Warnings = append(kpis.Warnings, fmt.Sprintf("résultats tronqués à %d factures sur %d", len(res.Invoices), res.Total))
	}
	return &kpis, nil
}

func (s *InvoiceService) FetchAlerts(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Alert, error) {
	res, err := s.fetchAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return invoice.BuildAlerts(res.Invoices, res.Warnings, s.settings.TransitRatioWarning), nil
}

// FetchTopClients ranks clients by estimated margin. limit <= 0 uses the
// configured default.
func (s *InvoiceService) FetchTopClients(ctx context.Context, filter domain.InvoiceFilter, limit int) ([]domain.TopClient, error) {
	if limit <= 0 {
		limit = s.settings.TopClientsLimit
	}
	res, err := s.fetchAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return invoice.TopClients(res.Invoices, limit), nil
}
