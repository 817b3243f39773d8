package invoice

import (
	"sort"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
)

const (
	// DefaultTransitRatioThreshold is the transit fee / invoice HT ratio above
	// which an invoice is considered suspicious.
	DefaultTransitRatioThreshold = 0.35
	DefaultTopClientsLimit       = 12

	// UnknownClient buckets invoices without a client id.
	UnknownClient = "NC"
)

// Alert codes.
const (
	AlertMissingClient     = "missing_client"
	AlertMissingTerritory  = "missing_territory"
	AlertEstimatedProducts = "estimated_products"
	AlertTransitRatio      = "transit_ratio"
	AlertMissingTransport  = "missing_transport"
	AlertUpstream          = "upstream_warning"
)

// ComputeKPIs folds an invoice set into portfolio totals.
func ComputeKPIs(invoices []domain.Invoice) domain.KPIResult {
	out := domain.KPIResult{
		EstimatedExportCosts: domain.CostComponents{Sources: []string{}},
		Warnings:             []string{},
	}

	for _, inv := range invoices {
		out.CaHT += inv.InvoiceHT
		out.TotalProducts += inv.ProductsHT
		out.TotalTransit += inv.TransitFee
		out.TotalTransport += inv.TransportCost
		out.ParcelCount += inv.ParcelCount
		out.EstimatedExportCosts.Add(inv.EstimatedExportCosts)
	}

	out.InvoiceCount = len(invoices)
	out.EstimatedExportCosts.Estimated = allEstimated(invoices)
	out.EstimatedMargin = out.TotalProducts - (out.TotalTransit + out.EstimatedExportCosts.Total + out.TotalTransport)
	return out
}

func allEstimated(invoices []domain.Invoice) bool {
	for _, inv := range invoices {
		if !inv.EstimatedExportCosts.Estimated {
			return false
		}
	}
	return true
}

// BuildAlerts raises at most one alert per condition class, then one info
// alert per upstream warning. A ratioThreshold <= 0 uses the default.
func BuildAlerts(invoices []domain.Invoice, upstreamWarnings []string, ratioThreshold float64) []domain.Alert {
	if ratioThreshold <= 0 {
		ratioThreshold = DefaultTransitRatioThreshold
	}

	var missingClient, missingTerritory, estimatedProducts, transitBreach, missingTransport int
	for _, inv := range invoices {
		if strings.TrimSpace(inv.ClientID) == "" {
			missingClient++
		}
		if strings.TrimSpace(inv.TerritoryCode) == "" {
			missingTerritory++
		}
		if inv.ProductsEstimated {
			estimatedProducts++
		}
		if inv.InvoiceHT > 0 && inv.TransitFee/inv.InvoiceHT > ratioThreshold {
			transitBreach++
		}
		if inv.TransportCost == 0 {
			missingTransport++
		}
	}

	alerts := make([]domain.Alert, 0, 5+len(upstreamWarnings))
	add := func(count int, code string, severity domain.AlertSeverity, message string) {
		if count > 0 {
			alerts = append(alerts, domain.Alert{Code: code, Severity: severity, Message: message, Count: count})
		}
	}

	add(transitBreach, AlertTransitRatio, domain.SeverityCritical, "Frais de transit supérieurs au seuil du montant HT facturé")
	add(missingClient, AlertMissingClient, domain.SeverityWarning, "Factures sans identifiant client")
	add(missingTerritory, AlertMissingTerritory, domain.SeverityWarning, "Factures sans territoire: coûts export non estimables")
	add(estimatedProducts, AlertEstimatedProducts, domain.SeverityInfo, "Montant produits HT estimé (HT facture moins transit)")
	add(missingTransport, AlertMissingTransport, domain.SeverityInfo, "Factures sans coût de transport renseigné")

	for _, w := range upstreamWarnings {
		if strings.TrimSpace(w) == "" {
			continue
		}
		alerts = append(alerts, domain.Alert{Code: AlertUpstream, Severity: domain.SeverityInfo, Message: w, Count: 1})
	}

	return alerts
}

// TopClients ranks clients by summed estimated margin, best first. Ties keep
// the client id order so the ranking is stable across calls.
func TopClients(invoices []domain.Invoice, limit int) []domain.TopClient {
	if limit <= 0 {
		limit = DefaultTopClientsLimit
	}

	byClient := make(map[string]*domain.TopClient)
	for _, inv := range invoices {
		id := strings.TrimSpace(inv.ClientID)
		if id == "" {
			id = UnknownClient
		}
		tc, ok := byClient[id]
		if !ok {
			tc = &domain.TopClient{ClientID: id}
			byClient[id] = tc
		}
		tc.CaHT += inv.InvoiceHT
		tc.ProductsHT += inv.ProductsHT
		tc.MarginEstimee += inv.EstimatedMargin
		tc.InvoiceCount++
	}

	out := make([]domain.TopClient, 0, len(byClient))
	for _, tc := range byClient {
		out = append(out, *tc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MarginEstimee != out[j].MarginEstimee {
			return out[i].MarginEstimee > out[j].MarginEstimee
		}
		return out[i].ClientID < out[j].ClientID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
