package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMissingTableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pq undefined table", &pq.Error{Code: "42P01"}, true},
		{"pq undefined column", &pq.Error{Code: "42703"}, true},
		{"pq syntax error", &pq.Error{Code: "42601"}, false},
		{"pq invalid date", &pq.Error{Code: "22007"}, false},
		{"pgx undefined table", &pgconn.PgError{Code: "42P01"}, true},
		{"pgx unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"wrapped pq", fmt.Errorf("query invoices: %w", &pq.Error{Code: "42P01"}), true},
		{"sentinel", fmt.Errorf("view gone: %w", repository.ErrSourceMissing), true},
		{"plain", errors.New("relation does not exist"), false},
		{"context", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMissingTableError(tt.err))
		})
	}
}

func TestBuildInvoiceFilterClause(t *testing.T) {
	where, args := buildInvoiceFilterClause(domain.InvoiceFilter{
		From:      "2024-01-01",
		To:        "2024-01-31",
		ClientID:  " C1 ",
		Territory: "g_p",
	}, invoiceColumns{date: "invoice_date"}, 1)

	assert.Equal(t,
		` WHERE "invoice_date"::date >= $1::date AND "invoice_date"::date <= $2::date AND LOWER("client_id"::text) = LOWER($3) AND "territory_code"::text ILIKE $4`,
		where)
	assert.Equal(t, []interface{}{"2024-01-01", "2024-01-31", "C1", `%g\_p%`}, args)
}

func TestBuildInvoiceFilterClauseAliasedColumns(t *testing.T) {
	where, args := buildInvoiceFilterClause(domain.InvoiceFilter{ClientID: "C9", Territory: "GP"},
		invoiceColumns{date: "date", client: "customer_id", territory: "destination"}, 1)

	assert.Equal(t, ` WHERE LOWER("customer_id"::text) = LOWER($1) AND "destination"::text ILIKE $2`, where)
	assert.Equal(t, []interface{}{"C9", "%GP%"}, args)
}

func TestBuildInvoiceFilterClauseEmpty(t *testing.T) {
	where, args := buildInvoiceFilterClause(domain.InvoiceFilter{}, invoiceColumns{date: "date"}, 1)

	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestBuildInvoiceSourceQueries(t *testing.T) {
	count, sel, args := buildInvoiceSourceQueries(repository.InvoiceQuery{
		Source:     "v_export_invoices_enriched",
		DateColumn: "date",
		Filter:     domain.InvoiceFilter{From: "2024-01-01"},
		Limit:      50,
		Offset:     100,
	})

	assert.Equal(t, `SELECT COUNT(*) FROM "v_export_invoices_enriched" WHERE "date"::date >= $1::date`, count)
	assert.Equal(t, `SELECT * FROM "v_export_invoices_enriched" WHERE "date"::date >= $1::date ORDER BY "date" DESC NULLS LAST LIMIT 50 OFFSET 100`, sel)
	assert.Len(t, args, 1)
}

func TestBuildInvoiceSourceQueriesQuotesIdentifiers(t *testing.T) {
	_, sel, _ := buildInvoiceSourceQueries(repository.InvoiceQuery{Source: `invoices"; DROP TABLE x; --`, DateColumn: "created_at"})

	assert.Equal(t, `SELECT * FROM "invoices""; DROP TABLE x; --" ORDER BY "created_at" DESC NULLS LAST`, sel)
}

func TestBuildLineFilterClause(t *testing.T) {
	where, args := buildLineFilterClause(domain.BreakdownFilters{Start: "2024-01-01", ProductID: "P1", Zone: "UE"}, 1)

	assert.Equal(t, " WHERE date >= $1::date AND LOWER(product_id) = LOWER($2)", where)
	assert.Equal(t, []interface{}{"2024-01-01", "P1"}, args)
}

func TestBuildReconciliationFilterClause(t *testing.T) {
	where, args := buildReconciliationFilterClause(domain.ReconciliationFilter{To: "2024-12-31", ClientID: "C9"}, 3)

	assert.Equal(t, " WHERE invoice_date <= $3::date AND LOWER(client_id) = LOWER($4)", where)
	assert.Equal(t, []interface{}{"2024-12-31", "C9"}, args)
}

func TestNormalizeRow(t *testing.T) {
	row := normalizeRow(map[string]any{
		"invoice_ht":   []byte("1234.50"),
		"invoice_date": time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		"created_at":   time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC),
		"parcel_count": int64(2),
	})

	assert.Equal(t, "1234.50", row["invoice_ht"])
	assert.Equal(t, "2024-03-05", row["invoice_date"])
	assert.Equal(t, "2024-03-05T10:30:00Z", row["created_at"])
	assert.Equal(t, int64(2), row["parcel_count"])
}

func TestAttachLines(t *testing.T) {
	docs := []domain.CostDoc{{ID: "1"}, {ID: "2"}}
	lines := []costDocLineRow{
		{DocumentID: "1", CostDocLine: domain.CostDocLine{Type: "Transit", Amount: 10}},
		{DocumentID: "1", CostDocLine: domain.CostDocLine{Type: "fret", Amount: 5}},
		{DocumentID: "3", CostDocLine: domain.CostDocLine{Type: "douane", Amount: 1}},
	}

	out := attachLines(docs, lines)

	require.Len(t, out, 2)
	require.Len(t, out[0].Lines, 2)
	assert.Equal(t, domain.CostTypeTransit, out[0].Lines[0].Type)
	assert.Equal(t, domain.CostTypeAutre, out[0].Lines[1].Type)
	assert.NotNil(t, out[1].Lines)
	assert.Empty(t, out[1].Lines)
}

func TestMissingTableWarning(t *testing.T) {
	assert.Contains(t, MissingTableWarning(domain.TableOctroiRates), "octroi_rates")
}

func TestClassifyLoadError(t *testing.T) {
	warning, err := classifyLoadError(domain.TableOctroiRates, nil)
	require.NoError(t, err)
	assert.Empty(t, warning)

	warning, err = classifyLoadError(domain.TableOctroiRates, &pq.Error{Code: "42P01"})
	require.NoError(t, err)
	assert.Equal(t, MissingTableWarning(domain.TableOctroiRates), warning)

	warning, err = classifyLoadError(domain.TableVatRates, &pq.Error{Code: "28P01"})
	require.Error(t, err)
	assert.Empty(t, warning)
	assert.Contains(t, err.Error(), "load vat_rates")
}

func TestRatesQueriesKeepConfiguredOrder(t *testing.T) {
	for _, query := range []string{vatRatesQuery, omRatesQuery, octroiRatesQuery, extraTaxRulesQuery} {
		assert.Contains(t, query, "ORDER BY id")
		assert.NotContains(t, query, "start_date DESC")
	}
}
