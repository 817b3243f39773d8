package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/lib/pq"
)

// clauseBuilder accumulates AND-ed conditions with numbered placeholders.
type clauseBuilder struct {
	clauses []string
	args    []interface{}
	idx     int
}

func newClauseBuilder(startIndex int) *clauseBuilder {
	return &clauseBuilder{idx: startIndex}
}

// add appends a condition whose single placeholder is written as %s.
func (b *clauseBuilder) add(format string, arg interface{}) {
	b.clauses = append(b.clauses, fmt.Sprintf(format, fmt.Sprintf("$%d", b.idx)))
	b.args = append(b.args, arg)
	b.idx++
}

func (b *clauseBuilder) where() (string, []interface{}) {
	if len(b.clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(b.clauses, " AND "), b.args
}

// buildInvoiceFilterClause filters an invoice source on the columns chosen
// for it. Empty client or territory columns fall back to the canonical names;
// a source lacking a column fails with undefined_column and the fetch chain
// moves on.
func buildInvoiceFilterClause(filter domain.InvoiceFilter, q invoiceColumns, startIndex int) (string, []interface{}) {
	b := newClauseBuilder(startIndex)
	col := pq.QuoteIdentifier(q.date)

	if filter.From != "" {
		b.add(col+"::date >= %s::date", filter.From)
	}
	if filter.To != "" {
		b.add(col+"::date <= %s::date", filter.To)
	}
	if filter.ClientID != "" {
		b.add("LOWER("+quoteOr(q.client, "client_id")+"::text) = LOWER(%s)", strings.TrimSpace(filter.ClientID))
	}
	if filter.Territory != "" {
		b.add(quoteOr(q.territory, "territory_code")+"::text ILIKE %s", "%"+escapeLike(strings.TrimSpace(filter.Territory))+"%")
	}

	return b.where()
}

// invoiceColumns names the columns an invoice query filters on.
type invoiceColumns struct {
	date      string
	client    string
	territory string
}

func quoteOr(column, fallback string) string {
	if column == "" {
		column = fallback
	}
	return pq.QuoteIdentifier(column)
}

// buildLineFilterClause pre-filters sales or cost lines on the indexed
// columns. The breakdown re-applies every filter in memory.
func buildLineFilterClause(filter domain.BreakdownFilters, startIndex int) (string, []interface{}) {
	b := newClauseBuilder(startIndex)

	if filter.Start != "" {
		b.add("date >= %s::date", filter.Start)
	}
	if filter.End != "" {
		b.add("date <= %s::date", filter.End)
	}
	if filter.ClientID != "" {
		b.add("LOWER(client_id) = LOWER(%s)", strings.TrimSpace(filter.ClientID))
	}
	if filter.ProductID != "" {
		b.add("LOWER(product_id) = LOWER(%s)", strings.TrimSpace(filter.ProductID))
	}

	return b.where()
}

// buildReconciliationFilterClause filters client invoices.
func buildReconciliationFilterClause(filter domain.ReconciliationFilter, startIndex int) (string, []interface{}) {
	b := newClauseBuilder(startIndex)

	if filter.From != "" {
		b.add("invoice_date >= %s::date", filter.From)
	}
	if filter.To != "" {
		b.add("invoice_date <= %s::date", filter.To)
	}
	if filter.ClientID != "" {
		b.add("LOWER(client_id) = LOWER(%s)", strings.TrimSpace(filter.ClientID))
	}

	return b.where()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
