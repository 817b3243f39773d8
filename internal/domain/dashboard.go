package domain

// BreakdownFilters constrains sales and cost lines before aggregation. Any
// empty field means no constraint on that dimension.
type BreakdownFilters struct {
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Zone        string `json:"zone,omitempty"`
	Destination string `json:"destination,omitempty"`
	Incoterm    string `json:"incoterm,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	ProductID   string `json:"product_id,omitempty"`
}

// RateTerritory is the territory used to resolve the single VAT and OM rows
// of a breakdown: destination first, zone otherwise.
func (f BreakdownFilters) RateTerritory() string {
	if f.Destination != "" {
		return f.Destination
	}
	return f.Zone
}

// BreakdownMetric holds the aggregate figures for one bucket or for the totals.
type BreakdownMetric struct {
	CaHT       float64 `json:"ca_ht"`
	Qty        float64 `json:"qty"`
	Costs      float64 `json:"costs"`
	Vat        float64 `json:"vat"`
	Om         float64 `json:"om"`
	Margin     float64 `json:"margin"`
	MarginRate float64 `json:"margin_rate"`
}

// ExportBreakdown is the result of the breakdown aggregator.
type ExportBreakdown struct {
	Totals         BreakdownMetric            `json:"totals"`
	ByZone         map[string]BreakdownMetric `json:"by_zone"`
	ByDestination  map[string]BreakdownMetric `json:"by_destination"`
	ByIncoterm     map[string]BreakdownMetric `json:"by_incoterm"`
	VatRatePercent float64                    `json:"vat_rate_percent"`
	OmRatePercent  float64                    `json:"om_rate_percent"`
	SalesCount     int                        `json:"sales_count"`
	CostCount      int                        `json:"cost_count"`
	Filters        BreakdownFilters           `json:"filters"`
	Warnings       []string                   `json:"warnings"`
}

// KPIResult is the portfolio fold over a filtered invoice set.
type KPIResult struct {
	CaHT                 float64        `json:"ca_ht"`
	TotalProducts        float64        `json:"total_products"`
	TotalTransit         float64        `json:"total_transit"`
	TotalTransport       float64        `json:"total_transport"`
	EstimatedExportCosts CostComponents `json:"estimated_export_costs"`
	EstimatedMargin      float64        `json:"estimated_margin"`
	InvoiceCount         int            `json:"invoice_count"`
	ParcelCount          float64        `json:"parcel_count"`
	Source               string         `json:"source"`
	Truncated            bool           `json:"truncated"`
	Warnings             []string       `json:"warnings"`
}

// Alert is a data-quality or business signal raised over an invoice set.
type Alert struct {
	Code     string        `json:"code"`
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
	Count    int           `json:"count"`
}

// TopClient is one row of the client ranking by estimated margin.
type TopClient struct {
	ClientID      string  `json:"client_id"`
	CaHT          float64 `json:"ca_ht"`
	ProductsHT    float64 `json:"products_ht"`
	MarginEstimee float64 `json:"marge_estimee"`
	InvoiceCount  int     `json:"invoice_count"`
}

// EstimateRequest is the payload of an ad-hoc cost estimate.
type EstimateRequest struct {
	Base      float64 `json:"base"`
	Territory string  `json:"territory"`
}
