// Package reconciliation matches supplier cost documents to client invoices
// and classifies the resulting cases by margin and transit risk.
package reconciliation

import (
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/google/uuid"
)

// caseNamespace seeds the deterministic case ids.
var caseNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("exportops/reconciliation-case"))

// SharesAnyIdentifier reports whether the document references the invoice
// through at least one non-empty identifier: invoice number, flow code,
// shipment reference, AWB or BL. Over-matching is accepted; dropping a real
// cost is not.
func SharesAnyIdentifier(inv domain.ClientInvoice, doc domain.CostDoc) bool {
	pairs := [][2]string{
		{inv.InvoiceNumber, doc.InvoiceNumber},
		{inv.FlowCode, doc.FlowCode},
		{inv.ShipmentRef, doc.ShipmentRef},
		{inv.AWB, doc.AWB},
		{inv.BL, doc.BL},
	}
	for _, p := range pairs {
		if sameIdentifier(p[0], p[1]) {
			return true
		}
	}
	return false
}

func sameIdentifier(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// Reconcile builds one case per invoice with every document sharing an
// identifier with it. A document may land in several cases. Documents that
// match no invoice are returned as unmatched.
func Reconcile(invoices []domain.ClientInvoice, docs []domain.CostDoc, thresholds domain.RiskThresholds) domain.ReconciliationResult {
	matched := make([]bool, len(docs))
	result := domain.ReconciliationResult{
		Cases:         make([]domain.ReconciliationCase, 0, len(invoices)),
		UnmatchedDocs: []domain.CostDoc{},
	}

	for _, inv := range invoices {
		c := domain.ReconciliationCase{Invoice: inv, Docs: []domain.CostDoc{}}
		for i, doc := range docs {
			if SharesAnyIdentifier(inv, doc) {
				c.Docs = append(c.Docs, doc)
				matched[i] = true
			}
		}
		result.Cases = append(result.Cases, Evaluate(c, thresholds))
	}

	for i, doc := range docs {
		if !matched[i] {
			result.UnmatchedDocs = append(result.UnmatchedDocs, doc)
		}
	}
	return result
}

// Evaluate fills the derived fields of a case from its invoice and documents.
func Evaluate(c domain.ReconciliationCase, thresholds domain.RiskThresholds) domain.ReconciliationCase {
	c.ID = CaseID(c)
	c.CostTotal = costTotal(c.Docs)
	c.Margin = Margin(c)
	c.TransitCoverage = TransitCoverage(c)
	c.Forwarder = forwarderOf(c)
	c.Tags = Classify(c.Margin, c.TransitCoverage, thresholds)
	return c
}

// CaseID is stable for a given invoice and set of matched documents.
func CaseID(c domain.ReconciliationCase) string {
	ids := make([]string, 0, len(c.Docs))
	for _, d := range c.Docs {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)

	key := c.Invoice.ID
	if key == "" {
		key = c.Invoice.InvoiceNumber
	}
	name := key + "|" + strings.Join(ids, ",")
	return uuid.NewSHA1(caseNamespace, []byte(name)).String()
}

func costTotal(docs []domain.CostDoc) float64 {
	var sum float64
	for _, d := range docs {
		sum += d.Total()
	}
	return sum
}

// Margin is the invoice total minus every matched cost line. The rate is NaN
// when the invoice total is zero.
func Margin(c domain.ReconciliationCase) domain.MarginResult {
	amount := c.Invoice.TotalHT - costTotal(c.Docs)
	rate := math.NaN()
	if c.Invoice.TotalHT != 0 {
		rate = amount / c.Invoice.TotalHT * 100
	}
	return domain.MarginResult{Amount: amount, Rate: rate}
}

// TransitCoverage compares transit lines to the transit fee billed to the client.
func TransitCoverage(c domain.ReconciliationCase) domain.TransitCoverage {
	var out domain.TransitCoverage
	for _, d := range c.Docs {
		for _, line := range d.Lines {
			if domain.NormalizeCostType(line.Type) == domain.CostTypeTransit {
				out.TransitCosts += line.Amount
			}
		}
	}
	if c.Invoice.TransitFee != nil {
		out.Covered = *c.Invoice.TransitFee
	}
	if out.TransitCosts > 0 {
		coverage := out.Covered / out.TransitCosts
		out.Coverage = &coverage
	}
	return out
}

// Classify returns the risk tags of a case, empty when it is not at risk.
func Classify(m domain.MarginResult, t domain.TransitCoverage, thresholds domain.RiskThresholds) []domain.RiskTag {
	tags := []domain.RiskTag{}

	if m.Amount < 0 {
		tags = append(tags, domain.RiskLoss)
	} else if (m.RateAvailable() && m.Rate < thresholds.MinMarginRatePct) || m.Amount < thresholds.MinMarginAmount {
		tags = append(tags, domain.RiskLowMargin)
	}

	if t.TransitCosts > 0 && t.Coverage != nil && *t.Coverage < 1 {
		tags = append(tags, domain.RiskTransitUncovered)
	}
	return tags
}

func forwarderOf(c domain.ReconciliationCase) string {
	if f := strings.TrimSpace(c.Invoice.Forwarder); f != "" {
		return f
	}
	for _, d := range c.Docs {
		if f := strings.TrimSpace(d.Forwarder); f != "" {
			return f
		}
	}
	return ""
}

// RiskCases keeps the cases carrying at least one tag, optionally only those
// carrying tag.
func RiskCases(cases []domain.ReconciliationCase, tag domain.RiskTag) []domain.ReconciliationCase {
	out := make([]domain.ReconciliationCase, 0)
	for _, c := range cases {
		if !c.AtRisk() {
			continue
		}
		if tag != "" && !c.HasTag(tag) {
			continue
		}
		out = append(out, c)
	}
	return out
}
