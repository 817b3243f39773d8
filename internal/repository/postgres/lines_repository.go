package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/repository"
)

type linesRepository struct {
	db *DB
}

func NewLinesRepository(db *DB) repository.LinesRepository {
	return &linesRepository{db: db}
}

const salesLinesSelect = `
	SELECT COALESCE(to_char(date, 'YYYY-MM-DD'), '') AS date,
	       COALESCE(client_id, '') AS client_id,
	       COALESCE(product_id, '') AS product_id,
	       COALESCE(quantity, 0) AS quantity,
	       unit_price_ht,
	       net_sales_ht,
	       COALESCE(currency, '') AS currency,
	       COALESCE(market_zone, '') AS market_zone,
	       COALESCE(incoterm, '') AS incoterm,
	       COALESCE(destination, '') AS destination
	FROM sales_lines`

const costLinesSelect = `
	SELECT COALESCE(to_char(date, 'YYYY-MM-DD'), '') AS date,
	       COALESCE(cost_type, '') AS cost_type,
	       COALESCE(amount, 0) AS amount,
	       COALESCE(currency, '') AS currency,
	       COALESCE(market_zone, '') AS market_zone,
	       COALESCE(incoterm, '') AS incoterm,
	       COALESCE(client_id, '') AS client_id,
	       COALESCE(product_id, '') AS product_id,
	       COALESCE(destination, '') AS destination
	FROM cost_lines`

func (r *linesRepository) GetSalesLines(ctx context.Context, filter domain.BreakdownFilters) ([]domain.SalesLine, error) {
	where, args := buildLineFilterClause(filter, 1)

	lines := []domain.SalesLine{}
	if err := r.db.SelectContext(ctx, &lines, salesLinesSelect+where+" ORDER BY date", args...); err != nil {
		return nil, fmt.Errorf("failed to get sales lines: %w", err)
	}
	return lines, nil
}

func (r *linesRepository) GetCostLines(ctx context.Context, filter domain.BreakdownFilters) ([]domain.CostLine, error) {
	where, args := buildLineFilterClause(filter, 1)

	lines := []domain.CostLine{}
	if err := r.db.SelectContext(ctx, &lines, costLinesSelect+where+" ORDER BY date", args...); err != nil {
		return nil, fmt.Errorf("failed to get cost lines: %w", err)
	}
	return lines, nil
}
