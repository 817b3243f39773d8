// backend-go/internal/domain/models.go
package domain

import "time"

// SalesLine is one sold unit or batch as stored in sales_lines.
type SalesLine struct {
	Date        string   `json:"date" db:"date"`
	ClientID    string   `json:"client_id" db:"client_id"`
	ProductID   string   `json:"product_id" db:"product_id"`
	Quantity    float64  `json:"quantity" db:"quantity"`
	UnitPriceHT *float64 `json:"unit_price_ht,omitempty" db:"unit_price_ht"`
	NetSalesHT  *float64 `json:"net_sales_ht,omitempty" db:"net_sales_ht"`
	Currency    string   `json:"currency" db:"currency"`
	MarketZone  string   `json:"market_zone" db:"market_zone"`
	Incoterm    string   `json:"incoterm" db:"incoterm"`
	Destination string   `json:"destination,omitempty" db:"destination"`
}

// Revenue returns the net HT amount, derived from quantity and unit price
// when the net amount is absent.
func (l SalesLine) Revenue() float64 {
	if l.NetSalesHT != nil {
		return *l.NetSalesHT
	}
	if l.UnitPriceHT != nil {
		return l.Quantity * *l.UnitPriceHT
	}
	return 0
}

// CostLine is one cost entry tied to a sale or shipment.
type CostLine struct {
	Date        string  `json:"date" db:"date"`
	CostType    string  `json:"cost_type" db:"cost_type"`
	Amount      float64 `json:"amount" db:"amount"`
	Currency    string  `json:"currency" db:"currency"`
	MarketZone  string  `json:"market_zone" db:"market_zone"`
	Incoterm    string  `json:"incoterm" db:"incoterm"`
	ClientID    string  `json:"client_id" db:"client_id"`
	ProductID   string  `json:"product_id,omitempty" db:"product_id"`
	Destination string  `json:"destination,omitempty" db:"destination"`
}

// Reference table names, also used as provenance in CostComponents.Sources.
const (
	TableVatRates      = "vat_rates"
	TableOmRates       = "om_rates"
	TableOctroiRates   = "octroi_rates"
	TableExtraTaxRules = "extra_tax_rules"
)

// RateRow is implemented by every reference rate variant.
type RateRow interface {
	Territory() string
	Validity() (start, end *time.Time)
}

type VatRate struct {
	TerritoryCode string     `json:"territory_code" db:"territory_code"`
	RatePercent   float64    `json:"rate_percent" db:"rate_percent"`
	StartDate     *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
}

func (r VatRate) Territory() string                  { return r.TerritoryCode }
func (r VatRate) Validity() (*time.Time, *time.Time) { return r.StartDate, r.EndDate }

// OmRate holds the Octroi de Mer general (OM) and regional (OMR) percentages.
type OmRate struct {
	TerritoryCode string     `json:"territory_code" db:"territory_code"`
	OmRate        float64    `json:"om_rate" db:"om_rate"`
	OmrRate       float64    `json:"omr_rate" db:"omr_rate"`
	StartDate     *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
}

func (r OmRate) Territory() string                  { return r.TerritoryCode }
func (r OmRate) Validity() (*time.Time, *time.Time) { return r.StartDate, r.EndDate }

type OctroiRate struct {
	TerritoryCode string     `json:"territory_code" db:"territory_code"`
	RatePercent   float64    `json:"rate_percent" db:"rate_percent"`
	StartDate     *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
}

func (r OctroiRate) Territory() string                  { return r.TerritoryCode }
func (r OctroiRate) Validity() (*time.Time, *time.Time) { return r.StartDate, r.EndDate }

// ExtraTaxRule supports percentage rules, fixed fees, or both.
type ExtraTaxRule struct {
	TerritoryCode string     `json:"territory_code" db:"territory_code"`
	Label         string     `json:"label" db:"label"`
	RatePercent   float64    `json:"rate_percent" db:"rate_percent"`
	FlatAmount    float64    `json:"flat_amount" db:"flat_amount"`
	StartDate     *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty" db:"end_date"`
}

func (r ExtraTaxRule) Territory() string                  { return r.TerritoryCode }
func (r ExtraTaxRule) Validity() (*time.Time, *time.Time) { return r.StartDate, r.EndDate }

// RateSet groups the four reference tables.
type RateSet struct {
	Vat    []VatRate      `json:"vat"`
	Om     []OmRate       `json:"om"`
	Octroi []OctroiRate   `json:"octroi"`
	Extra  []ExtraTaxRule `json:"extra"`
}

// RateSnapshot is what a rates repository hands out: the tables plus the
// warnings raised while loading them (missing tables etc).
type RateSnapshot struct {
	Rates    RateSet   `json:"rates"`
	Warnings []string  `json:"warnings"`
	LoadedAt time.Time `json:"loaded_at"`
}

// CostComponents is the estimated export cost breakdown for one tax base.
type CostComponents struct {
	Vat        float64  `json:"vat"`
	Om         float64  `json:"om"`
	Octroi     float64  `json:"octroi"`
	ExtraRules float64  `json:"extra_rules"`
	Total      float64  `json:"total"`
	Sources    []string `json:"sources"`
	Estimated  bool     `json:"estimated"`
}

// Add accumulates another breakdown's amounts. Sources and Estimated are
// left alone: they only make sense for a single estimate.
func (c *CostComponents) Add(other CostComponents) {
	c.Vat += other.Vat
	c.Om += other.Om
	c.Octroi += other.Octroi
	c.ExtraRules += other.ExtraRules
	c.Total += other.Total
}

// Invoice is the normalized view of a row from any invoice source.
type Invoice struct {
	InvoiceNumber        string         `json:"invoice_number"`
	InvoiceDate          string         `json:"invoice_date,omitempty"`
	ClientID             string         `json:"client_id,omitempty"`
	TerritoryCode        string         `json:"territory_code,omitempty"`
	InvoiceHT            float64        `json:"invoice_ht"`
	ProductsHT           float64        `json:"products_ht"`
	ProductsEstimated    bool           `json:"products_estimated"`
	TransitFee           float64        `json:"transit_fee"`
	TransportCost        float64        `json:"transport_cost"`
	ParcelCount          float64        `json:"parcel_count"`
	EstimatedExportCosts CostComponents `json:"estimated_export_costs"`
	EstimatedMargin      float64        `json:"estimated_margin"`
	Source               string         `json:"source"`
}

// InvoiceFilter narrows invoice fetches. Dates are inclusive YYYY-MM-DD bounds.
type InvoiceFilter struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Territory string `json:"territory,omitempty"`
}

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Offset returns the row offset for the page, pages being 1-based.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// InvoiceSource describes one candidate relation and the columns to try on
// it, in order. Client and territory columns are only tried when the matching
// filter is set.
type InvoiceSource struct {
	Name             string   `json:"name"`
	DateColumns      []string `json:"date_columns"`
	ClientColumns    []string `json:"client_columns,omitempty"`
	TerritoryColumns []string `json:"territory_columns,omitempty"`
}

// InvoiceResult is what the invoice fetch chain returns. Source is empty and
// Warnings is non-empty when no candidate relation could be queried.
type InvoiceResult struct {
	Invoices   []Invoice `json:"invoices"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	Source     string    `json:"source"`
	DateColumn string    `json:"date_column,omitempty"`
	Warnings   []string  `json:"warnings"`
}
