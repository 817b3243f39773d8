package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
)

// IngestRepository writes imported reference data, lines and reconciliation
// inputs. It works on a plain *sql.DB so the seed CLI can use the pgx driver.
type IngestRepository struct {
	db *sql.DB
}

func NewIngestRepository(db *sql.DB) *IngestRepository {
	return &IngestRepository{db: db}
}

func (r *IngestRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// execEach runs query once per argument row on a prepared statement.
func execEach(ctx context.Context, tx *sql.Tx, query string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// ReplaceRates swaps the content of every reference table that has rows in
// set. Tables with no imported rows are left untouched.
func (r *IngestRepository) ReplaceRates(ctx context.Context, set domain.RateSet) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if len(set.Vat) > 0 {
			rows := make([][]interface{}, 0, len(set.Vat))
			for _, v := range set.Vat {
				rows = append(rows, []interface{}{v.TerritoryCode, v.RatePercent, nullTime(v.StartDate), nullTime(v.EndDate)})
			}
			if err := replaceTable(ctx, tx, domain.TableVatRates,
				`INSERT INTO vat_rates (territory_code, rate_percent, start_date, end_date) VALUES ($1, $2, $3, $4)`, rows); err != nil {
				return err
			}
		}

		if len(set.Om) > 0 {
			rows := make([][]interface{}, 0, len(set.Om))
			for _, v := range set.Om {
				rows = append(rows, []interface{}{v.TerritoryCode, v.OmRate, v.OmrRate, nullTime(v.StartDate), nullTime(v.EndDate)})
			}
			if err := replaceTable(ctx, tx, domain.TableOmRates,
				`INSERT INTO om_rates (territory_code, om_rate, omr_rate, start_date, end_date) VALUES ($1, $2, $3, $4, $5)`, rows); err != nil {
				return err
			}
		}

		if len(set.Octroi) > 0 {
			rows := make([][]interface{}, 0, len(set.Octroi))
			for _, v := range set.Octroi {
				rows = append(rows, []interface{}{v.TerritoryCode, v.RatePercent, nullTime(v.StartDate), nullTime(v.EndDate)})
			}
			if err := replaceTable(ctx, tx, domain.TableOctroiRates,
				`INSERT INTO octroi_rates (territory_code, rate_percent, start_date, end_date) VALUES ($1, $2, $3, $4)`, rows); err != nil {
				return err
			}
		}

		if len(set.Extra) > 0 {
			rows := make([][]interface{}, 0, len(set.Extra))
			for _, v := range set.Extra {
				rows = append(rows, []interface{}{v.TerritoryCode, v.Label, v.RatePercent, v.FlatAmount, nullTime(v.StartDate), nullTime(v.EndDate)})
			}
			if err := replaceTable(ctx, tx, domain.TableExtraTaxRules,
				`INSERT INTO extra_tax_rules (territory_code, label, rate_percent, flat_amount, start_date, end_date) VALUES ($1, $2, $3, $4, $5, $6)`, rows); err != nil {
				return err
			}
		}

		return nil
	})
}

func replaceTable(ctx context.Context, tx *sql.Tx, table, insert string, rows [][]interface{}) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	if err := execEach(ctx, tx, insert, rows); err != nil {
		return fmt.Errorf("failed to insert %s: %w", table, err)
	}
	return nil
}

func (r *IngestRepository) InsertSalesLines(ctx context.Context, lines []domain.SalesLine) error {
	const query = `
		INSERT INTO sales_lines (
			date, client_id, product_id, quantity, unit_price_ht, net_sales_ht,
			currency, market_zone, incoterm, destination
		) VALUES (NULLIF($1, '')::date, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	rows := make([][]interface{}, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []interface{}{
			l.Date, nullIfEmpty(l.ClientID), nullIfEmpty(l.ProductID), l.Quantity,
			nullFloat(l.UnitPriceHT), nullFloat(l.NetSalesHT),
			nullIfEmpty(l.Currency), nullIfEmpty(l.MarketZone), nullIfEmpty(l.Incoterm), nullIfEmpty(l.Destination),
		})
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := execEach(ctx, tx, query, rows); err != nil {
			return fmt.Errorf("failed to insert sales lines: %w", err)
		}
		return nil
	})
}

func (r *IngestRepository) InsertCostLines(ctx context.Context, lines []domain.CostLine) error {
	const query = `
		INSERT INTO cost_lines (
			date, cost_type, amount, currency, market_zone, incoterm,
			client_id, product_id, destination
		) VALUES (NULLIF($1, '')::date, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	rows := make([][]interface{}, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []interface{}{
			l.Date, nullIfEmpty(l.CostType), l.Amount, nullIfEmpty(l.Currency),
			nullIfEmpty(l.MarketZone), nullIfEmpty(l.Incoterm),
			nullIfEmpty(l.ClientID), nullIfEmpty(l.ProductID), nullIfEmpty(l.Destination),
		})
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := execEach(ctx, tx, query, rows); err != nil {
			return fmt.Errorf("failed to insert cost lines: %w", err)
		}
		return nil
	})
}

// UpsertClientInvoices inserts or updates client invoices keyed by invoice number.
func (r *IngestRepository) UpsertClientInvoices(ctx context.Context, invoices []domain.ClientInvoice) error {
	const query = `
		INSERT INTO client_invoices (
			invoice_number, flow_code, shipment_ref, awb, bl, invoice_date,
			client_id, client_name, destination, incoterm, forwarder, total_ht, transit_fee
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (invoice_number) DO UPDATE SET
			flow_code = EXCLUDED.flow_code,
			shipment_ref = EXCLUDED.shipment_ref,
			awb = EXCLUDED.awb,
			bl = EXCLUDED.bl,
			invoice_date = EXCLUDED.invoice_date,
			client_id = EXCLUDED.client_id,
			client_name = EXCLUDED.client_name,
			destination = EXCLUDED.destination,
			incoterm = EXCLUDED.incoterm,
			forwarder = EXCLUDED.forwarder,
			total_ht = EXCLUDED.total_ht,
			transit_fee = EXCLUDED.transit_fee,
			updated_at = NOW()
	`
	rows := make([][]interface{}, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, []interface{}{
			inv.InvoiceNumber, nullIfEmpty(inv.FlowCode), nullIfEmpty(inv.ShipmentRef),
			nullIfEmpty(inv.AWB), nullIfEmpty(inv.BL), inv.InvoiceDate,
			nullIfEmpty(inv.ClientID), nullIfEmpty(inv.ClientName), nullIfEmpty(inv.Destination),
			nullIfEmpty(inv.Incoterm), nullIfEmpty(inv.Forwarder), inv.TotalHT, nullFloat(inv.TransitFee),
		})
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := execEach(ctx, tx, query, rows); err != nil {
			return fmt.Errorf("failed to upsert client invoices: %w", err)
		}
		return nil
	})
}

// UpsertCostDocs writes each document keyed by (supplier, doc_number) and
// replaces its lines.
func (r *IngestRepository) UpsertCostDocs(ctx context.Context, docs []domain.CostDoc) error {
	const docQuery = `
		INSERT INTO cost_documents (
			supplier, doc_number, doc_date, invoice_number, flow_code,
			shipment_ref, awb, bl, forwarder
		) VALUES ($1, $2, NULLIF($3, '')::date, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (supplier, doc_number) DO UPDATE SET
			doc_date = EXCLUDED.doc_date,
			invoice_number = EXCLUDED.invoice_number,
			flow_code = EXCLUDED.flow_code,
			shipment_ref = EXCLUDED.shipment_ref,
			awb = EXCLUDED.awb,
			bl = EXCLUDED.bl,
			forwarder = EXCLUDED.forwarder,
			updated_at = NOW()
		RETURNING id
	`
	const lineQuery = `
		INSERT INTO cost_document_lines (document_id, type, amount, label)
		VALUES ($1, $2, $3, $4)
	`

	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, d := range docs {
			var id int64
			err := tx.QueryRowContext(ctx, docQuery,
				d.Supplier, d.DocNumber, d.DocDate, nullIfEmpty(d.InvoiceNumber), nullIfEmpty(d.FlowCode),
				nullIfEmpty(d.ShipmentRef), nullIfEmpty(d.AWB), nullIfEmpty(d.BL), nullIfEmpty(d.Forwarder),
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("failed to upsert cost document %s/%s: %w", d.Supplier, d.DocNumber, err)
			}

			if _, err := tx.ExecContext(ctx, `DELETE FROM cost_document_lines WHERE document_id = $1`, id); err != nil {
				return fmt.Errorf("failed to clear lines of cost document %d: %w", id, err)
			}

			rows := make([][]interface{}, 0, len(d.Lines))
			for _, l := range d.Lines {
				rows = append(rows, []interface{}{id, domain.NormalizeCostType(l.Type), l.Amount, nullIfEmpty(l.Label)})
			}
			if err := execEach(ctx, tx, lineQuery, rows); err != nil {
				return fmt.Errorf("failed to insert lines of cost document %d: %w", id, err)
			}
		}
		return nil
	})
}
