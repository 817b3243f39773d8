package reconciliation

import (
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
)

const bucketNA = "NA"

// AggregateCases groups cases by destination, client, incoterm and
// forwarder, and computes the average transit coverage over the cases where
// coverage applies, plus the transit amount left uncovered.
func AggregateCases(cases []domain.ReconciliationCase) domain.CaseAggregates {
	out := domain.CaseAggregates{
		ByDestination: map[string]domain.CaseBucket{},
		ByClient:      map[string]domain.CaseBucket{},
		ByIncoterm:    map[string]domain.CaseBucket{},
		ByForwarder:   map[string]domain.CaseBucket{},
		CaseCount:     len(cases),
	}

	var coverageSum float64
	var coverageCount int

	for _, c := range cases {
		client := c.Invoice.ClientID
		if strings.TrimSpace(client) == "" {
			client = c.Invoice.ClientName
		}
		addBucket(out.ByDestination, c.Invoice.Destination, c.Margin.Amount)
		addBucket(out.ByClient, client, c.Margin.Amount)
		addBucket(out.ByIncoterm, c.Invoice.Incoterm, c.Margin.Amount)
		addBucket(out.ByForwarder, c.Forwarder, c.Margin.Amount)

		if c.TransitCoverage.Coverage != nil {
			coverageSum += *c.TransitCoverage.Coverage
			coverageCount++
		}
		out.UncoveredTransit += c.TransitCoverage.Uncovered()

		if c.AtRisk() {
			out.RiskCount++
		}
	}

	if coverageCount > 0 {
		avg := coverageSum / float64(coverageCount)
		out.AvgTransitCoverage = &avg
	}
	return out
}

func addBucket(m map[string]domain.CaseBucket, key string, margin float64) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = bucketNA
	}
	b := m[key]
	b.Margin += margin
	b.Count++
	m[key] = b
}
