package invoice

import (
	"fmt"
	"testing"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rc = RatesContext{
	Rates: domain.RateSet{
		Vat: []domain.VatRate{{TerritoryCode: "GP", RatePercent: 8.5}},
		Om:  []domain.OmRate{{TerritoryCode: "GP", OmRate: 7, OmrRate: 2.5}},
	},
	At: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
}

func TestMapRowEnrichedView(t *testing.T) {
	row := map[string]any{
		"invoice_number": "F-001",
		"invoice_date":   "2024-05-02",
		"client_id":      "C1",
		"territory_code": "GP",
		"invoice_ht":     "1 100,00",
		"products_ht":    1000.0,
		"transit_fee":    []byte("100"),
		"transport_cost": 40,
		"parcel_count":   int64(3),
	}

	inv := MapRow(row, "v_export_invoices_enriched", rc)

	assert.Equal(t, "F-001", inv.InvoiceNumber)
	assert.Equal(t, "2024-05-02", inv.InvoiceDate)
	assert.Equal(t, "C1", inv.ClientID)
	assert.Equal(t, "GP", inv.TerritoryCode)
	assert.InDelta(t, 1100, inv.InvoiceHT, 1e-9)
	assert.InDelta(t, 1000, inv.ProductsHT, 1e-9)
	assert.False(t, inv.ProductsEstimated)
	assert.InDelta(t, 100, inv.TransitFee, 1e-9)
	assert.InDelta(t, 40, inv.TransportCost, 1e-9)
	assert.InDelta(t, 3, inv.ParcelCount, 1e-9)
	assert.Equal(t, "v_export_invoices_enriched", inv.Source)

	assert.InDelta(t, 85, inv.EstimatedExportCosts.Vat, 1e-9)
	assert.InDelta(t, 95, inv.EstimatedExportCosts.Om, 1e-9)
	assert.InDelta(t, 1000-(100+180+40), inv.EstimatedMargin, 1e-9)
}

func TestMapRowAliasesAndProductsFallback(t *testing.T) {
	row := map[string]any{
		"number":        "",
		"invoice_no":    "INV-9",
		"date":          "2024-01-15",
		"customer_id":   "C7",
		"destination":   "Martinique",
		"total_ht":      "500",
		"frais_transit": "50",
	}

	inv := MapRow(row, "invoices", rc)

	assert.Equal(t, "INV-9", inv.InvoiceNumber, "blank aliases are skipped")
	assert.Equal(t, "2024-01-15", inv.InvoiceDate)
	assert.Equal(t, "C7", inv.ClientID)
	assert.Equal(t, "Martinique", inv.TerritoryCode)
	assert.True(t, inv.ProductsEstimated)
	assert.InDelta(t, 450, inv.ProductsHT, 1e-9)
	assert.True(t, inv.EstimatedExportCosts.Estimated, "no rate row matches Martinique")
	assert.InDelta(t, 400, inv.EstimatedMargin, 1e-9)
}

func TestMapRowUsesIDAsLastResort(t *testing.T) {
	inv := MapRow(map[string]any{"id": 42, "products_ht": nil, "invoice_ht": 10}, "invoices", rc)

	assert.Equal(t, "42", inv.InvoiceNumber)
	assert.True(t, inv.ProductsEstimated, "a null products column counts as absent")
	assert.InDelta(t, 10, inv.ProductsHT, 1e-9)
}

func TestComputeKPIs(t *testing.T) {
	invoices := MapRows([]map[string]any{
		{"invoice_number": "A", "territory_code": "GP", "invoice_ht": 1100, "products_ht": 1000, "transit_fee": 100, "transport_cost": 40, "parcel_count": 2},
		{"invoice_number": "B", "territory_code": "GP", "invoice_ht": 550, "transit_fee": 50, "parcel_count": 1},
	}, "invoices", rc)

	kpi := ComputeKPIs(invoices)

	assert.Equal(t, 2, kpi.InvoiceCount)
	assert.InDelta(t, 1650, kpi.CaHT, 1e-9)
	assert.InDelta(t, 1500, kpi.TotalProducts, 1e-9)
	assert.InDelta(t, 150, kpi.TotalTransit, 1e-9)
	assert.InDelta(t, 40, kpi.TotalTransport, 1e-9)
	assert.InDelta(t, 3, kpi.ParcelCount, 1e-9)
	assert.InDelta(t, 127.5, kpi.EstimatedExportCosts.Vat, 1e-9)
	assert.InDelta(t, 142.5, kpi.EstimatedExportCosts.Om, 1e-9)
	assert.InDelta(t, 270, kpi.EstimatedExportCosts.Total, 1e-9)
	assert.False(t, kpi.EstimatedExportCosts.Estimated)
	assert.InDelta(t, 1500-(150+270+40), kpi.EstimatedMargin, 1e-9)
}

func TestComputeKPIsEmpty(t *testing.T) {
	kpi := ComputeKPIs(nil)

	assert.Zero(t, kpi.InvoiceCount)
	assert.Zero(t, kpi.EstimatedMargin)
	assert.NotNil(t, kpi.Warnings)
}

func TestBuildAlertsOnePerConditionClass(t *testing.T) {
	invoices := []domain.Invoice{
		{InvoiceNumber: "1", InvoiceHT: 100, TransitFee: 50, TransportCost: 10, TerritoryCode: "GP"},
		{InvoiceNumber: "2", InvoiceHT: 100, TransitFee: 40, TransportCost: 10, TerritoryCode: "GP"},
		{InvoiceNumber: "3", ClientID: "C1", InvoiceHT: 100, TransitFee: 10, ProductsEstimated: true},
		{InvoiceNumber: "4", ClientID: "C2", InvoiceHT: 0, TransitFee: 10, TransportCost: 5, TerritoryCode: "MQ"},
	}

	alerts := BuildAlerts(invoices, []string{"table octroi_rates absente", " "}, 0)

	byCode := map[string]domain.Alert{}
	for _, a := range alerts {
		byCode[a.Code] = a
	}

	require.Len(t, alerts, 6)
	assert.Equal(t, domain.SeverityCritical, byCode[AlertTransitRatio].Severity)
	assert.Equal(t, 2, byCode[AlertTransitRatio].Count, "zero invoice HT never breaches the ratio")
	assert.Equal(t, domain.SeverityWarning, byCode[AlertMissingClient].Severity)
	assert.Equal(t, 2, byCode[AlertMissingClient].Count)
	assert.Equal(t, domain.SeverityWarning, byCode[AlertMissingTerritory].Severity)
	assert.Equal(t, 1, byCode[AlertMissingTerritory].Count)
	assert.Equal(t, domain.SeverityInfo, byCode[AlertEstimatedProducts].Severity)
	assert.Equal(t, domain.SeverityInfo, byCode[AlertMissingTransport].Severity)
	assert.Equal(t, 1, byCode[AlertMissingTransport].Count)

	upstream := byCode[AlertUpstream]
	assert.Equal(t, domain.SeverityInfo, upstream.Severity)
	assert.Equal(t, "table octroi_rates absente", upstream.Message)
}

func TestBuildAlertsCleanSet(t *testing.T) {
	invoices := []domain.Invoice{
		{ClientID: "C1", TerritoryCode: "GP", InvoiceHT: 1000, TransitFee: 350, TransportCost: 20},
	}

	assert.Empty(t, BuildAlerts(invoices, nil, DefaultTransitRatioThreshold), "a ratio equal to the threshold is not a breach")
}

func TestTopClients(t *testing.T) {
	invoices := []domain.Invoice{
		{ClientID: "C1", InvoiceHT: 100, ProductsHT: 90, EstimatedMargin: 10},
		{ClientID: "C2", InvoiceHT: 200, ProductsHT: 180, EstimatedMargin: 50},
		{ClientID: "", InvoiceHT: 300, ProductsHT: 250, EstimatedMargin: 30},
		{ClientID: "C1", InvoiceHT: 100, ProductsHT: 90, EstimatedMargin: 15},
	}

	top := TopClients(invoices, 0)

	require.Len(t, top, 3)
	assert.Equal(t, "C2", top[0].ClientID)
	assert.Equal(t, UnknownClient, top[1].ClientID)
	assert.Equal(t, "C1", top[2].ClientID)
	assert.InDelta(t, 25, top[2].MarginEstimee, 1e-9)
	assert.InDelta(t, 200, top[2].CaHT, 1e-9)
	assert.InDelta(t, 180, top[2].ProductsHT, 1e-9)
	assert.Equal(t, 2, top[2].InvoiceCount)
}

func TestTopClientsTruncates(t *testing.T) {
	var invoices []domain.Invoice
	for i := 0; i < 20; i++ {
		invoices = append(invoices, domain.Invoice{ClientID: fmt.Sprintf("C%02d", i), EstimatedMargin: float64(i)})
	}

	top := TopClients(invoices, DefaultTopClientsLimit)

	require.Len(t, top, 12)
	assert.Equal(t, "C19", top[0].ClientID)
	assert.Equal(t, "C08", top[11].ClientID)
}
