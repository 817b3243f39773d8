// Package invoice normalizes invoice rows from the various invoice sources
// and folds invoice sets into KPIs, alerts and client rankings.
package invoice

import (
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/coerce"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/estimator"
)

// Column aliases per logical field, in lookup order. Source schemas have
// drifted between the enriched view and the older raw tables.
var (
	numberColumns    = []string{"invoice_number", "number", "invoice_no", "numero_facture", "id"}
	dateColumns      = []string{"invoice_date", "date", "issued_at", "date_facture", "created_at"}
	clientColumns    = []string{"client_id", "customer_id", "client_code", "client"}
	territoryColumns = []string{"territory_code", "territory", "destination", "zone", "market_zone"}
	invoiceHTColumns = []string{"invoice_ht", "total_ht", "amount_ht", "montant_ht", "invoice_amount_ht"}
	productsColumns  = []string{"products_ht", "products_amount_ht", "montant_produits_ht", "goods_ht"}
	transitColumns   = []string{"transit_fee", "transit_fees", "frais_transit"}
	transportColumns = []string{"transport_cost", "shipping_cost", "frais_transport"}
	parcelColumns    = []string{"parcel_count", "parcels", "nb_colis", "colis"}
)

// ClientColumns returns the client column aliases in lookup order.
func ClientColumns() []string { return append([]string(nil), clientColumns...) }

// TerritoryColumns returns the territory column aliases in lookup order.
func TerritoryColumns() []string { return append([]string(nil), territoryColumns...) }

// RatesContext carries the reference tables and the instant their validity
// windows are checked against.
type RatesContext struct {
	Rates domain.RateSet
	At    time.Time
}

// MapRow builds a normalized Invoice from a raw row. When the row has no
// products-only amount, it is derived as invoice HT minus transit fee and the
// invoice is flagged ProductsEstimated. Export costs are estimated on the
// products amount for the invoice territory.
func MapRow(row map[string]any, source string, rc RatesContext) domain.Invoice {
	inv := domain.Invoice{
		InvoiceNumber: pickText(row, numberColumns),
		InvoiceDate:   pickText(row, dateColumns),
		ClientID:      pickText(row, clientColumns),
		TerritoryCode: pickText(row, territoryColumns),
		InvoiceHT:     pickNumber(row, invoiceHTColumns),
		TransitFee:    pickNumber(row, transitColumns),
		TransportCost: pickNumber(row, transportColumns),
		ParcelCount:   pickNumber(row, parcelColumns),
		Source:        source,
	}

	if products, ok := pickOptionalNumber(row, productsColumns); ok {
		inv.ProductsHT = products
	} else {
		inv.ProductsHT = inv.InvoiceHT - inv.TransitFee
		inv.ProductsEstimated = true
	}

	inv.EstimatedExportCosts = estimator.Estimate(inv.ProductsHT, inv.TerritoryCode, rc.Rates, rc.At)
	inv.EstimatedMargin = inv.ProductsHT - (inv.TransitFee + inv.EstimatedExportCosts.Total + inv.TransportCost)
	return inv
}

// MapRows maps every row of one source.
func MapRows(rows []map[string]any, source string, rc RatesContext) []domain.Invoice {
	out := make([]domain.Invoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, MapRow(row, source, rc))
	}
	return out
}

func pickText(row map[string]any, columns []string) string {
	for _, col := range columns {
		if v, ok := row[col]; ok {
			if s := coerce.Text(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func pickOptionalNumber(row map[string]any, columns []string) (float64, bool) {
	for _, col := range columns {
		if v, ok := row[col]; ok {
			if f, ok := coerce.OptionalNumber(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func pickNumber(row map[string]any, columns []string) float64 {
	f, _ := pickOptionalNumber(row, columns)
	return f
}
