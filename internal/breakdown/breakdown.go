// Package breakdown aggregates sales and cost lines into per-zone,
// per-destination and per-incoterm margin figures.
package breakdown

import (
	"strings"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/coerce"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/rates"
)

const (
	// BucketNA keys lines whose grouping field is empty.
	BucketNA = "NA"

	WarningVatMissing = "TVA estimée à 0%: aucun taux trouvé"
	WarningOmMissing  = "Octroi de mer estimé à 0%: aucun taux trouvé"
)

type Input struct {
	SalesLines []domain.SalesLine
	CostLines  []domain.CostLine
	VatRates   []domain.VatRate
	OmRates    []domain.OmRate
	Filters    domain.BreakdownFilters
	At         time.Time
}

// Compute filters the lines, aggregates totals and buckets and applies one
// VAT row and one OM row, resolved for the filtered destination (or zone),
// to every figure. Missing reference data produces warnings, never errors.
func Compute(in Input) domain.ExportBreakdown {
	f := in.Filters
	sales := FilterSales(in.SalesLines, f)
	costs := FilterCosts(in.CostLines, f)

	out := domain.ExportBreakdown{
		Filters:    f,
		SalesCount: len(sales),
		CostCount:  len(costs),
		Warnings:   []string{},
	}

	rateFilter := rates.Filter{Territory: f.RateTerritory(), At: in.At}
	var vatPct, omPct float64
	if row, ok := rates.PickRate(in.VatRates, rateFilter); ok {
		vatPct = row.RatePercent
	} else {
		out.Warnings = append(out.Warnings, WarningVatMissing)
	}
	if row, ok := rates.PickRate(in.OmRates, rateFilter); ok {
		omPct = row.OmRate + row.OmrRate
	} else {
		out.Warnings = append(out.Warnings, WarningOmMissing)
	}
	out.VatRatePercent = vatPct
	out.OmRatePercent = omPct

	var totals domain.BreakdownMetric
	for _, line := range sales {
		totals.Qty += line.Quantity
		totals.CaHT += line.Revenue()
	}
	for _, line := range costs {
		totals.Costs += line.Amount
	}

	byZone := newBuckets()
	byDestination := newBuckets()
	byIncoterm := newBuckets()

	for _, line := range sales {
		revenue := line.Revenue()
		byZone.addSale(line.MarketZone, revenue, line.Quantity)
		byDestination.addSale(destinationOf(line.Destination, line.MarketZone), revenue, line.Quantity)
		byIncoterm.addSale(line.Incoterm, revenue, line.Quantity)
	}

	for _, line := range costs {
		byZone.upsert(line.MarketZone).Costs += line.Amount
		byDestination.upsert(destinationOf(line.Destination, line.MarketZone)).Costs += line.Amount
		byIncoterm.upsert(line.Incoterm).Costs += line.Amount
	}

	out.Totals = finish(totals, vatPct, omPct)
	out.ByZone = byZone.finish(vatPct, omPct)
	out.ByDestination = byDestination.finish(vatPct, omPct)
	out.ByIncoterm = byIncoterm.finish(vatPct, omPct)

	return out
}

// FilterSales keeps the sales lines matching every set filter field.
func FilterSales(lines []domain.SalesLine, f domain.BreakdownFilters) []domain.SalesLine {
	out := make([]domain.SalesLine, 0, len(lines))
	for _, line := range lines {
		if matches(f, line.Date, line.MarketZone, line.Destination, line.Incoterm, line.ClientID, line.ProductID) {
			out = append(out, line)
		}
	}
	return out
}

// FilterCosts keeps the cost lines matching every set filter field.
func FilterCosts(lines []domain.CostLine, f domain.BreakdownFilters) []domain.CostLine {
	out := make([]domain.CostLine, 0, len(lines))
	for _, line := range lines {
		if matches(f, line.Date, line.MarketZone, line.Destination, line.Incoterm, line.ClientID, line.ProductID) {
			out = append(out, line)
		}
	}
	return out
}

func matches(f domain.BreakdownFilters, date, zone, destination, incoterm, clientID, productID string) bool {
	if !coerce.MatchesDateRange(date, f.Start, f.End) {
		return false
	}
	if f.Zone != "" && !coerce.EqualFold(zone, f.Zone) {
		return false
	}
	if f.Destination != "" && !coerce.ContainsFold(destinationOf(destination, zone), f.Destination) {
		return false
	}
	if f.Incoterm != "" && !coerce.EqualFold(incoterm, f.Incoterm) {
		return false
	}
	if f.ClientID != "" && !coerce.EqualFold(clientID, f.ClientID) {
		return false
	}
	if f.ProductID != "" && !coerce.EqualFold(productID, f.ProductID) {
		return false
	}
	return true
}

func destinationOf(destination, zone string) string {
	if strings.TrimSpace(destination) != "" {
		return destination
	}
	return zone
}

type buckets map[string]*domain.BreakdownMetric

func newBuckets() buckets {
	return make(buckets)
}

// upsert returns the bucket for key, creating a zeroed one on first touch.
func (b buckets) upsert(key string) *domain.BreakdownMetric {
	key = strings.TrimSpace(key)
	if key == "" {
		key = BucketNA
	}
	m, ok := b[key]
	if !ok {
		m = &domain.BreakdownMetric{}
		b[key] = m
	}
	return m
}

func (b buckets) addSale(key string, revenue, qty float64) {
	m := b.upsert(key)
	m.CaHT += revenue
	m.Qty += qty
}

func (b buckets) finish(vatPct, omPct float64) map[string]domain.BreakdownMetric {
	out := make(map[string]domain.BreakdownMetric, len(b))
	for key, m := range b {
		out[key] = finish(*m, vatPct, omPct)
	}
	return out
}

func finish(m domain.BreakdownMetric, vatPct, omPct float64) domain.BreakdownMetric {
	m.Vat = m.CaHT * vatPct / 100
	m.Om = m.CaHT * omPct / 100
	m.Margin = m.CaHT - m.Costs - m.Vat - m.Om
	m.MarginRate = MarginRate(m.Margin, m.CaHT)
	return m
}

// MarginRate returns margin as a percentage of revenue, 0 when revenue is not positive.
func MarginRate(margin, caHT float64) float64 {
	if caHT <= 0 {
		return 0
	}
	return margin / caHT * 100
}
