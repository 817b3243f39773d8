package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type invoiceSourceRepository struct {
	db *DB
}

func NewInvoiceSourceRepository(db *DB) repository.InvoiceSourceRepository {
	return &invoiceSourceRepository{db: db}
}

// QueryInvoiceRows reads one page of raw rows from q.Source, ordered by
// q.DateColumn. A missing relation or column is returned wrapped in
// repository.ErrSourceMissing so callers can move to the next candidate.
func (r *invoiceSourceRepository) QueryInvoiceRows(ctx context.Context, q repository.InvoiceQuery) ([]map[string]any, int, error) {
	countQuery, selectQuery, args := buildInvoiceSourceQueries(q)

	var (
		total int
		rows  []map[string]any
	)

	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &total, countQuery, args...); err != nil {
			return fmt.Errorf("count %s: %w", q.Source, err)
		}

		result, err := tx.QueryxContext(ctx, selectQuery, args...)
		if err != nil {
			return fmt.Errorf("query %s by %s: %w", q.Source, q.DateColumn, err)
		}
		defer result.Close()

		for result.Next() {
			row := make(map[string]any)
			if err := result.MapScan(row); err != nil {
				return fmt.Errorf("scan %s row: %w", q.Source, err)
			}
			rows = append(rows, normalizeRow(row))
		}
		return result.Err()
	})
	if IsMissingTableError(err) {
		return nil, 0, fmt.Errorf("%w: %s(%s,%s,%s): %v", repository.ErrSourceMissing,
			q.Source, q.DateColumn, q.ClientColumn, q.TerritoryColumn, err)
	}
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

func buildInvoiceSourceQueries(q repository.InvoiceQuery) (string, string, []interface{}) {
	source := pq.QuoteIdentifier(q.Source)
	dateCol := pq.QuoteIdentifier(q.DateColumn)
	where, args := buildInvoiceFilterClause(q.Filter, invoiceColumns{
		date:      q.DateColumn,
		client:    q.ClientColumn,
		territory: q.TerritoryColumn,
	}, 1)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", source, where)

	// Ordering on the date column also fails fast if it is missing when no date
	// filter is set.
	selectQuery := fmt.Sprintf("SELECT * FROM %s%s ORDER BY %s DESC NULLS LAST", source, where, dateCol)
	if q.Limit > 0 {
		selectQuery += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		selectQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	return countQuery, selectQuery, args
}

// normalizeRow turns driver values into what the invoice mapper expects:
// text for byte slices and date-only strings for midnight timestamps.
func normalizeRow(row map[string]any) map[string]any {
	for k, v := range row {
		switch val := v.(type) {
		case []byte:
			row[k] = string(val)
		case time.Time:
			if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
				row[k] = val.Format("2006-01-02")
			} else {
				row[k] = val.Format(time.RFC3339)
			}
		}
	}
	return row
}
