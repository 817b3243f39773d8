// backend-go/internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
)

// ErrSourceMissing marks a relation or column that does not exist in the
// current schema. Callers treat it as "try the next candidate", never as a fault.
var ErrSourceMissing = errors.New("source relation or column missing")

// RatesRepository loads the four reference rate tables. A missing table is
// reported as a snapshot warning, not as an error.
type RatesRepository interface {
	LoadRates(ctx context.Context) (domain.RateSnapshot, error)
}

// LinesRepository reads the sales and cost lines fed to the breakdown.
type LinesRepository interface {
	GetSalesLines(ctx context.Context, filter domain.BreakdownFilters) ([]domain.SalesLine, error)
	GetCostLines(ctx context.Context, filter domain.BreakdownFilters) ([]domain.CostLine, error)
}

// InvoiceQuery addresses one candidate invoice source with one date column.
type InvoiceQuery struct {
	Source          string
	DateColumn      string
	ClientColumn    string
	TerritoryColumn string
	Filter          domain.InvoiceFilter
	Limit           int
	Offset          int
}

// InvoiceSourceRepository returns raw rows from a candidate source, whose
// schema is not known in advance. Total is the row count before paging.
type InvoiceSourceRepository interface {
	QueryInvoiceRows(ctx context.Context, q InvoiceQuery) (rows []map[string]any, total int, err error)
}

// ReconciliationRepository loads the reconciliation inputs.
type ReconciliationRepository interface {
	GetClientInvoices(ctx context.Context, filter domain.ReconciliationFilter) ([]domain.ClientInvoice, error)
	GetCostDocs(ctx context.Context, filter domain.ReconciliationFilter) ([]domain.CostDoc, error)
}
