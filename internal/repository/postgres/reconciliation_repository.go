package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

type reconciliationRepository struct {
	db *DB
}

func NewReconciliationRepository(db *DB) repository.ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) GetClientInvoices(ctx context.Context, filter domain.ReconciliationFilter) ([]domain.ClientInvoice, error) {
	where, args := buildReconciliationFilterClause(filter, 1)
	query := `
		SELECT id::text AS id,
		       COALESCE(invoice_number, '') AS invoice_number,
		       COALESCE(flow_code, '') AS flow_code,
		       COALESCE(shipment_ref, '') AS shipment_ref,
		       COALESCE(awb, '') AS awb,
		       COALESCE(bl, '') AS bl,
		       COALESCE(to_char(invoice_date, 'YYYY-MM-DD'), '') AS invoice_date,
		       COALESCE(client_id, '') AS client_id,
		       COALESCE(client_name, '') AS client_name,
		       COALESCE(destination, '') AS destination,
		       COALESCE(incoterm, '') AS incoterm,
		       COALESCE(forwarder, '') AS forwarder,
		       COALESCE(total_ht, 0) AS total_ht,
		       transit_fee
		FROM client_invoices` + where + `
		ORDER BY invoice_date DESC NULLS LAST, invoice_number`

	invoices := []domain.ClientInvoice{}
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get client invoices: %w", err)
	}
	return invoices, nil
}

type costDocLineRow struct {
	DocumentID string `db:"document_id"`
	domain.CostDocLine
}

// GetCostDocs loads every cost document with its lines. Documents are not
// narrowed by the filter: a cost can be booked long after the invoice it
// belongs to, and matching happens on identifiers.
func (r *reconciliationRepository) GetCostDocs(ctx context.Context, _ domain.ReconciliationFilter) ([]domain.CostDoc, error) {
	var (
		docs  []domain.CostDoc
		lines []costDocLineRow
	)

	err := r.db.WithReadTx(ctx, func(tx *sqlx.Tx) error {
		docsQuery := `
			SELECT id::text AS id,
			       COALESCE(supplier, '') AS supplier,
			       COALESCE(doc_number, '') AS doc_number,
			       COALESCE(to_char(doc_date, 'YYYY-MM-DD'), '') AS doc_date,
			       COALESCE(invoice_number, '') AS invoice_number,
			       COALESCE(flow_code, '') AS flow_code,
			       COALESCE(shipment_ref, '') AS shipment_ref,
			       COALESCE(awb, '') AS awb,
			       COALESCE(bl, '') AS bl,
			       COALESCE(forwarder, '') AS forwarder
			FROM cost_documents
			ORDER BY doc_date NULLS LAST, id`
		if err := tx.SelectContext(ctx, &docs, docsQuery); err != nil {
			return fmt.Errorf("failed to get cost documents: %w", err)
		}

		linesQuery := `
			SELECT document_id::text AS document_id,
			       COALESCE(type, '') AS type,
			       COALESCE(amount, 0) AS amount,
			       COALESCE(label, '') AS label
			FROM cost_document_lines
			ORDER BY document_id, id`
		if err := tx.SelectContext(ctx, &lines, linesQuery); err != nil {
			return fmt.Errorf("failed to get cost document lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return attachLines(docs, lines), nil
}

func attachLines(docs []domain.CostDoc, lines []costDocLineRow) []domain.CostDoc {
	byDoc := make(map[string][]domain.CostDocLine, len(docs))
	for _, l := range lines {
		line := l.CostDocLine
		line.Type = domain.NormalizeCostType(line.Type)
		byDoc[l.DocumentID] = append(byDoc[l.DocumentID], line)
	}

	out := make([]domain.CostDoc, 0, len(docs))
	for _, d := range docs {
		d.Lines = byDoc[d.ID]
		if d.Lines == nil {
			d.Lines = []domain.CostDocLine{}
		}
		out = append(out, d)
	}
	return out
}
