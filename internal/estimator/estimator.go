// Package estimator computes the export tax and duty components owed on a
// tax base for a territory.
package estimator

import (
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/rates"
)

// Estimate resolves one row per rate category, independently, and applies
// them to base. Unresolved categories contribute zero. The result is only
// flagged Estimated when no category resolved at all: a territory with a VAT
// row and no Octroi row is a normal, fully-covered case.
//
// Amounts are plain percentages of base, unrounded.
func Estimate(base float64, territory string, set domain.RateSet, at time.Time) domain.CostComponents {
	filter := rates.Filter{Territory: territory, At: at}
	out := domain.CostComponents{Sources: []string{}}
	resolved := 0

	if row, ok := rates.PickRate(set.Vat, filter); ok {
		out.Vat = base * row.RatePercent / 100
		out.Sources = append(out.Sources, domain.TableVatRates)
		resolved++
	}

	if row, ok := rates.PickRate(set.Om, filter); ok {
		out.Om = base * (row.OmRate + row.OmrRate) / 100
		out.Sources = append(out.Sources, domain.TableOmRates)
		resolved++
	}

	if row, ok := rates.PickRate(set.Octroi, filter); ok {
		out.Octroi = base * row.RatePercent / 100
		out.Sources = append(out.Sources, domain.TableOctroiRates)
		resolved++
	}

	if row, ok := rates.PickRate(set.Extra, filter); ok {
		out.ExtraRules = base*row.RatePercent/100 + row.FlatAmount
		out.Sources = append(out.Sources, domain.TableExtraTaxRules)
		resolved++
	}

	out.Total = out.Vat + out.Om + out.Octroi + out.ExtraRules
	out.Estimated = resolved == 0
	return out
}
