package reconciliation

import (
	"encoding/json"
	"testing"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func doc(id string, lines ...domain.CostDocLine) domain.CostDoc {
	return domain.CostDoc{ID: id, Lines: lines}
}

func TestSharesAnyIdentifierIsOrSemantic(t *testing.T) {
	inv := domain.ClientInvoice{InvoiceNumber: "F-1", FlowCode: "FL1", ShipmentRef: "SHP-77", AWB: "AWB1", BL: "BL1"}
	d := domain.CostDoc{InvoiceNumber: "F-2", FlowCode: "FL2", ShipmentRef: " shp-77 ", AWB: "AWB2", BL: "BL2"}

	assert.True(t, SharesAnyIdentifier(inv, d))
}

func TestSharesAnyIdentifierIgnoresEmpty(t *testing.T) {
	inv := domain.ClientInvoice{InvoiceNumber: "F-1"}
	d := domain.CostDoc{InvoiceNumber: "F-2", AWB: ""}

	assert.False(t, SharesAnyIdentifier(inv, d))
	assert.False(t, SharesAnyIdentifier(domain.ClientInvoice{}, domain.CostDoc{}), "two blank identifiers are not a match")
}

func TestReconcileLossCase(t *testing.T) {
	invoices := []domain.ClientInvoice{{ID: "i1", InvoiceNumber: "F-500", TotalHT: 500}}
	docs := []domain.CostDoc{
		{ID: "d1", InvoiceNumber: "F-500", Lines: []domain.CostDocLine{{Type: "transport", Amount: 400}, {Type: "douane", Amount: 200}}},
	}

	res := Reconcile(invoices, docs, domain.DefaultRiskThresholds())

	require.Len(t, res.Cases, 1)
	c := res.Cases[0]
	assert.InDelta(t, 600, c.CostTotal, 1e-9)
	assert.InDelta(t, -100, c.Margin.Amount, 1e-9)
	assert.InDelta(t, -20, c.Margin.Rate, 1e-9)
	assert.Equal(t, []domain.RiskTag{domain.RiskLoss}, c.Tags)
	assert.Empty(t, res.UnmatchedDocs)
}

func TestReconcileTransitNotCovered(t *testing.T) {
	invoices := []domain.ClientInvoice{{ID: "i1", AWB: "AWB-9", TotalHT: 5000, TransitFee: f(150)}}
	docs := []domain.CostDoc{
		{ID: "d1", AWB: "awb-9", Lines: []domain.CostDocLine{{Type: "Transit", Amount: 200}}},
	}

	c := Reconcile(invoices, docs, domain.DefaultRiskThresholds()).Cases[0]

	require.NotNil(t, c.TransitCoverage.Coverage)
	assert.InDelta(t, 0.75, *c.TransitCoverage.Coverage, 1e-9)
	assert.InDelta(t, 50, c.TransitCoverage.Uncovered(), 1e-9)
	assert.Equal(t, []domain.RiskTag{domain.RiskTransitUncovered}, c.Tags)
}

func TestReconcileMatchesOnlyByShipmentRef(t *testing.T) {
	invoices := []domain.ClientInvoice{{ID: "i1", InvoiceNumber: "F-1", FlowCode: "A", ShipmentRef: "S-1", AWB: "X", BL: "Y", TotalHT: 1000}}
	docs := []domain.CostDoc{
		{ID: "d1", InvoiceNumber: "F-9", FlowCode: "B", ShipmentRef: "S-1", AWB: "Z", BL: "W", Lines: []domain.CostDocLine{{Type: "transport", Amount: 10}}},
		{ID: "d2", InvoiceNumber: "F-8", ShipmentRef: "S-2", Lines: []domain.CostDocLine{{Type: "autre", Amount: 5}}},
	}

	res := Reconcile(invoices, docs, domain.DefaultRiskThresholds())

	require.Len(t, res.Cases[0].Docs, 1)
	assert.Equal(t, "d1", res.Cases[0].Docs[0].ID)
	require.Len(t, res.UnmatchedDocs, 1)
	assert.Equal(t, "d2", res.UnmatchedDocs[0].ID)
}

func TestReconcileDocumentCanMatchSeveralInvoices(t *testing.T) {
	invoices := []domain.ClientInvoice{
		{ID: "i1", InvoiceNumber: "F-1", BL: "BL-1", TotalHT: 100},
		{ID: "i2", InvoiceNumber: "F-2", BL: "BL-1", TotalHT: 100},
	}
	docs := []domain.CostDoc{doc("d1", domain.CostDocLine{Type: "transport", Amount: 10})}
	docs[0].BL = "BL-1"

	res := Reconcile(invoices, docs, domain.DefaultRiskThresholds())

	assert.Len(t, res.Cases[0].Docs, 1)
	assert.Len(t, res.Cases[1].Docs, 1)
	assert.NotEqual(t, res.Cases[0].ID, res.Cases[1].ID)
}

func TestCaseIDIsDeterministic(t *testing.T) {
	c := domain.ReconciliationCase{
		Invoice: domain.ClientInvoice{ID: "i1"},
		Docs:    []domain.CostDoc{{ID: "b"}, {ID: "a"}},
	}
	reordered := domain.ReconciliationCase{
		Invoice: domain.ClientInvoice{ID: "i1"},
		Docs:    []domain.CostDoc{{ID: "a"}, {ID: "b"}},
	}

	assert.Equal(t, CaseID(c), CaseID(reordered))
	assert.NotEqual(t, CaseID(c), CaseID(domain.ReconciliationCase{Invoice: domain.ClientInvoice{ID: "i1"}}))
}

func TestMarginZeroTotalIsNotANumber(t *testing.T) {
	c := domain.ReconciliationCase{Invoice: domain.ClientInvoice{TotalHT: 0}, Docs: []domain.CostDoc{doc("d", domain.CostDocLine{Amount: 10})}}

	m := Margin(c)

	assert.InDelta(t, -10, m.Amount, 1e-9)
	assert.False(t, m.RateAvailable())

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":-10,"rate":null,"rate_label":"n/a"}`, string(raw))
}

func TestTransitCoverageNotApplicable(t *testing.T) {
	c := domain.ReconciliationCase{
		Invoice: domain.ClientInvoice{TransitFee: f(80)},
		Docs:    []domain.CostDoc{doc("d", domain.CostDocLine{Type: "transport", Amount: 100})},
	}

	tc := TransitCoverage(c)

	assert.Nil(t, tc.Coverage, "no transit cost means coverage does not apply")
	assert.Zero(t, tc.Uncovered())
}

func TestTransitCoverageUntrackedFee(t *testing.T) {
	c := domain.ReconciliationCase{
		Docs: []domain.CostDoc{doc("d", domain.CostDocLine{Type: "transit", Amount: 100})},
	}

	tc := TransitCoverage(c)

	require.NotNil(t, tc.Coverage)
	assert.Zero(t, *tc.Coverage)
	assert.InDelta(t, 100, tc.Uncovered(), 1e-9)
}

func TestClassify(t *testing.T) {
	th := domain.DefaultRiskThresholds()

	tests := []struct {
		name    string
		margin  domain.MarginResult
		transit domain.TransitCoverage
		want    []domain.RiskTag
	}{
		{"healthy", domain.MarginResult{Amount: 200, Rate: 20}, domain.TransitCoverage{}, []domain.RiskTag{}},
		{"loss", domain.MarginResult{Amount: -1, Rate: -1}, domain.TransitCoverage{}, []domain.RiskTag{domain.RiskLoss}},
		{"low rate", domain.MarginResult{Amount: 400, Rate: 4}, domain.TransitCoverage{}, []domain.RiskTag{domain.RiskLowMargin}},
		{"low amount", domain.MarginResult{Amount: 49, Rate: 30}, domain.TransitCoverage{}, []domain.RiskTag{domain.RiskLowMargin}},
		{"zero margin", domain.MarginResult{Amount: 0, Rate: 0}, domain.TransitCoverage{}, []domain.RiskTag{domain.RiskLowMargin}},
		{
			"loss and uncovered transit",
			domain.MarginResult{Amount: -50, Rate: -5},
			domain.TransitCoverage{TransitCosts: 100, Covered: 10, Coverage: f(0.1)},
			[]domain.RiskTag{domain.RiskLoss, domain.RiskTransitUncovered},
		},
		{
			"fully covered transit",
			domain.MarginResult{Amount: 500, Rate: 50},
			domain.TransitCoverage{TransitCosts: 100, Covered: 100, Coverage: f(1)},
			[]domain.RiskTag{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.margin, tt.transit, th))
		})
	}
}

func TestRiskCases(t *testing.T) {
	cases := []domain.ReconciliationCase{
		{ID: "ok", Tags: []domain.RiskTag{}},
		{ID: "loss", Tags: []domain.RiskTag{domain.RiskLoss}},
		{ID: "transit", Tags: []domain.RiskTag{domain.RiskTransitUncovered}},
	}

	assert.Len(t, RiskCases(cases, ""), 2)

	onlyTransit := RiskCases(cases, domain.RiskTransitUncovered)
	require.Len(t, onlyTransit, 1)
	assert.Equal(t, "transit", onlyTransit[0].ID)
}

func TestAggregateCases(t *testing.T) {
	invoices := []domain.ClientInvoice{
		{ID: "1", InvoiceNumber: "F1", ClientID: "C1", Destination: "GP", Incoterm: "DAP", Forwarder: "Bollore", TotalHT: 1000, TransitFee: f(50)},
		{ID: "2", InvoiceNumber: "F2", ClientID: "C1", Destination: "GP", Incoterm: "DDP", TotalHT: 500},
		{ID: "3", InvoiceNumber: "F3", ClientName: "Client Trois", Destination: "", TotalHT: 300, TransitFee: f(100)},
	}
	docs := []domain.CostDoc{
		{ID: "d1", InvoiceNumber: "F1", Lines: []domain.CostDocLine{{Type: "transit", Amount: 100}, {Type: "transport", Amount: 200}}},
		{ID: "d2", InvoiceNumber: "F2", Forwarder: "CMA", Lines: []domain.CostDocLine{{Type: "douane", Amount: 600}}},
		{ID: "d3", InvoiceNumber: "F3", Lines: []domain.CostDocLine{{Type: "transit", Amount: 100}}},
	}

	res := Reconcile(invoices, docs, domain.DefaultRiskThresholds())
	agg := AggregateCases(res.Cases)

	assert.Equal(t, 3, agg.CaseCount)
	assert.Equal(t, 2, agg.RiskCount, "F1 has uncovered transit, F2 is a loss")

	assert.Equal(t, domain.CaseBucket{Margin: 700 - 100, Count: 2}, agg.ByDestination["GP"])
	assert.Equal(t, domain.CaseBucket{Margin: 200, Count: 1}, agg.ByDestination[bucketNA])
	assert.Equal(t, 2, agg.ByClient["C1"].Count)
	assert.Equal(t, 1, agg.ByClient["Client Trois"].Count)
	assert.Equal(t, 1, agg.ByForwarder["Bollore"].Count)
	assert.Equal(t, 1, agg.ByForwarder["CMA"].Count, "forwarder falls back to the cost document")
	assert.Equal(t, 1, agg.ByForwarder[bucketNA].Count)

	require.NotNil(t, agg.AvgTransitCoverage)
	assert.InDelta(t, 0.75, *agg.AvgTransitCoverage, 1e-9)
	assert.InDelta(t, 50, agg.UncoveredTransit, 1e-9)
}

func TestAggregateCasesEmpty(t *testing.T) {
	agg := AggregateCases(nil)

	assert.Zero(t, agg.CaseCount)
	assert.Nil(t, agg.AvgTransitCoverage)
	assert.NotNil(t, agg.ByClient)
}
