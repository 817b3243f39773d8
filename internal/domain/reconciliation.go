package domain

import (
	"encoding/json"
	"math"
)

// ClientInvoice is an imported client invoice as used by the reconciliation.
type ClientInvoice struct {
	ID            string   `json:"id" db:"id"`
	InvoiceNumber string   `json:"invoice_number" db:"invoice_number"`
	FlowCode      string   `json:"flow_code,omitempty" db:"flow_code"`
	ShipmentRef   string   `json:"shipment_ref,omitempty" db:"shipment_ref"`
	AWB           string   `json:"awb,omitempty" db:"awb"`
	BL            string   `json:"bl,omitempty" db:"bl"`
	InvoiceDate   string   `json:"invoice_date,omitempty" db:"invoice_date"`
	ClientID      string   `json:"client_id,omitempty" db:"client_id"`
	ClientName    string   `json:"client_name,omitempty" db:"client_name"`
	Destination   string   `json:"destination,omitempty" db:"destination"`
	Incoterm      string   `json:"incoterm,omitempty" db:"incoterm"`
	Forwarder     string   `json:"forwarder,omitempty" db:"forwarder"`
	TotalHT       float64  `json:"total_ht" db:"total_ht"`
	TransitFee    *float64 `json:"transit_fee,omitempty" db:"transit_fee"`
}

// CostDocLine is one typed amount on a supplier cost document.
type CostDocLine struct {
	Type   string  `json:"type" db:"type"`
	Amount float64 `json:"amount" db:"amount"`
	Label  string  `json:"label,omitempty" db:"label"`
}

// CostDoc is a supplier cost document (forwarder, customs broker, carrier).
type CostDoc struct {
	ID            string        `json:"id" db:"id"`
	Supplier      string        `json:"supplier,omitempty" db:"supplier"`
	DocNumber     string        `json:"doc_number,omitempty" db:"doc_number"`
	DocDate       string        `json:"doc_date,omitempty" db:"doc_date"`
	InvoiceNumber string        `json:"invoice_number,omitempty" db:"invoice_number"`
	FlowCode      string        `json:"flow_code,omitempty" db:"flow_code"`
	ShipmentRef   string        `json:"shipment_ref,omitempty" db:"shipment_ref"`
	AWB           string        `json:"awb,omitempty" db:"awb"`
	BL            string        `json:"bl,omitempty" db:"bl"`
	Forwarder     string        `json:"forwarder,omitempty" db:"forwarder"`
	Lines         []CostDocLine `json:"lines"`
}

// Total sums every line of the document.
func (d CostDoc) Total() float64 {
	var sum float64
	for _, line := range d.Lines {
		sum += line.Amount
	}
	return sum
}

// MarginResult is the realized margin of a case. Rate is NaN when the invoice
// total is zero; it is encoded as null with a "n/a" label.
type MarginResult struct {
	Amount float64
	Rate   float64
}

// RateAvailable reports whether Rate is a finite number.
func (m MarginResult) RateAvailable() bool {
	return !math.IsNaN(m.Rate) && !math.IsInf(m.Rate, 0)
}

func (m MarginResult) MarshalJSON() ([]byte, error) {
	payload := struct {
		Amount    float64  `json:"amount"`
		Rate      *float64 `json:"rate"`
		RateLabel string   `json:"rate_label,omitempty"`
	}{Amount: m.Amount}
	if m.RateAvailable() {
		rate := m.Rate
		payload.Rate = &rate
	} else {
		payload.RateLabel = "n/a"
	}
	return json.Marshal(payload)
}

// TransitCoverage compares transit costs billed by suppliers to the transit
// fee recovered on the client invoice. Coverage is nil when there is no
// transit cost at all, which is not the same as 0% coverage.
type TransitCoverage struct {
	TransitCosts float64  `json:"transit_costs"`
	Covered      float64  `json:"covered"`
	Coverage     *float64 `json:"coverage"`
}

// Uncovered returns the transit amount left unrecovered, zero when covered
// or not applicable.
func (t TransitCoverage) Uncovered() float64 {
	if t.Coverage == nil || *t.Coverage >= 1 {
		return 0
	}
	return t.TransitCosts - t.Covered
}

// ReconciliationCase pairs one client invoice with its matched cost documents.
type ReconciliationCase struct {
	ID              string          `json:"id"`
	Invoice         ClientInvoice   `json:"invoice"`
	Docs            []CostDoc       `json:"docs"`
	CostTotal       float64         `json:"cost_total"`
	Margin          MarginResult    `json:"margin"`
	TransitCoverage TransitCoverage `json:"transit_coverage"`
	Forwarder       string          `json:"forwarder,omitempty"`
	Tags            []RiskTag       `json:"tags"`
}

// AtRisk reports whether the case carries any risk tag.
func (c ReconciliationCase) AtRisk() bool {
	return len(c.Tags) > 0
}

// HasTag reports whether the case carries the given tag.
func (c ReconciliationCase) HasTag(tag RiskTag) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RiskThresholds configures the low-margin classification.
type RiskThresholds struct {
	MinMarginRatePct float64 `json:"min_margin_rate_pct"`
	MinMarginAmount  float64 `json:"min_margin_amount"`
}

// DefaultRiskThresholds are used when nothing is configured.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{MinMarginRatePct: 5, MinMarginAmount: 50}
}

type ReconciliationResult struct {
	Cases         []ReconciliationCase `json:"cases"`
	UnmatchedDocs []CostDoc            `json:"unmatched_docs"`
}

// CaseBucket is one group of the case aggregation.
type CaseBucket struct {
	Margin float64 `json:"margin"`
	Count  int     `json:"count"`
}

type CaseAggregates struct {
	ByDestination      map[string]CaseBucket `json:"by_destination"`
	ByClient           map[string]CaseBucket `json:"by_client"`
	ByIncoterm         map[string]CaseBucket `json:"by_incoterm"`
	ByForwarder        map[string]CaseBucket `json:"by_forwarder"`
	AvgTransitCoverage *float64              `json:"avg_transit_coverage"`
	UncoveredTransit   float64               `json:"uncovered_transit"`
	CaseCount          int                   `json:"case_count"`
	RiskCount          int                   `json:"risk_count"`
}

// ReconciliationFilter narrows the inputs loaded for a reconciliation run.
type ReconciliationFilter struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}
