package importer

import (
	"strings"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/coerce"
	"github.com/andresuchdata/exportops/backend-go/internal/domain"
)

func optionalDate(value string) *time.Time {
	t, ok := coerce.ParseDate(value)
	if !ok {
		return nil
	}
	return &t
}

func isoDate(value string) string {
	t, ok := coerce.ParseDate(value)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

func optionalNumber(value string) *float64 {
	f, ok := coerce.OptionalNumber(value)
	if !ok {
		return nil
	}
	return &f
}

func territory(r Record) string {
	return strings.ToUpper(r.Get("territory_code", "territory", "territoire", "code"))
}

func validity(r Record) (*time.Time, *time.Time) {
	return optionalDate(r.Get("start_date", "date_debut", "valid_from")),
		optionalDate(r.Get("end_date", "date_fin", "valid_to"))
}

func toVatRates(records []Record) []domain.VatRate {
	out := make([]domain.VatRate, 0, len(records))
	for _, r := range records {
		start, end := validity(r)
		out = append(out, domain.VatRate{
			TerritoryCode: territory(r),
			RatePercent:   coerce.Number(r.Get("rate_percent", "rate", "taux", "taux_tva"), 0),
			StartDate:     start,
			EndDate:       end,
		})
	}
	return out
}

func toOmRates(records []Record) []domain.OmRate {
	out := make([]domain.OmRate, 0, len(records))
	for _, r := range records {
		start, end := validity(r)
		out = append(out, domain.OmRate{
			TerritoryCode: territory(r),
			OmRate:        coerce.Number(r.Get("om_rate", "om", "taux_om"), 0),
			OmrRate:       coerce.Number(r.Get("omr_rate", "omr", "taux_omr"), 0),
			StartDate:     start,
			EndDate:       end,
		})
	}
	return out
}

func toOctroiRates(records []Record) []domain.OctroiRate {
	out := make([]domain.OctroiRate, 0, len(records))
	for _, r := range records {
		start, end := validity(r)
		out = append(out, domain.OctroiRate{
			TerritoryCode: territory(r),
			RatePercent:   coerce.Number(r.Get("rate_percent", "rate", "taux"), 0),
			StartDate:     start,
			EndDate:       end,
		})
	}
	return out
}

func toExtraTaxRules(records []Record) []domain.ExtraTaxRule {
	out := make([]domain.ExtraTaxRule, 0, len(records))
	for _, r := range records {
		start, end := validity(r)
		out = append(out, domain.ExtraTaxRule{
			TerritoryCode: territory(r),
			Label:         r.Get("label", "libelle", "name"),
			RatePercent:   coerce.Number(r.Get("rate_percent", "rate", "taux"), 0),
			FlatAmount:    coerce.Number(r.Get("flat_amount", "montant_fixe", "amount"), 0),
			StartDate:     start,
			EndDate:       end,
		})
	}
	return out
}

func toSalesLines(records []Record) []domain.SalesLine {
	out := make([]domain.SalesLine, 0, len(records))
	for _, r := range records {
		out = append(out, domain.SalesLine{
			Date:        isoDate(r.Get("date", "invoice_date", "date_facture")),
			ClientID:    r.Get("client_id", "client", "customer_id"),
			ProductID:   r.Get("product_id", "sku", "produit"),
			Quantity:    coerce.Number(r.Get("quantity", "qty", "quantite"), 0),
			UnitPriceHT: optionalNumber(r.Get("unit_price_ht", "prix_unitaire_ht", "unit_price")),
			NetSalesHT:  optionalNumber(r.Get("net_sales_ht", "montant_ht", "ca_ht")),
			Currency:    strings.ToUpper(r.Get("currency", "devise")),
			MarketZone:  r.Get("market_zone", "zone"),
			Incoterm:    strings.ToUpper(r.Get("incoterm")),
			Destination: r.Get("destination", "territory_code", "pays"),
		})
	}
	return out
}

func toCostLines(records []Record) []domain.CostLine {
	out := make([]domain.CostLine, 0, len(records))
	for _, r := range records {
		out = append(out, domain.CostLine{
			Date:        isoDate(r.Get("date", "cost_date")),
			CostType:    r.Get("cost_type", "type", "type_cout"),
			Amount:      coerce.Number(r.Get("amount", "montant", "montant_ht"), 0),
			Currency:    strings.ToUpper(r.Get("currency", "devise")),
			MarketZone:  r.Get("market_zone", "zone"),
			Incoterm:    strings.ToUpper(r.Get("incoterm")),
			ClientID:    r.Get("client_id", "client"),
			ProductID:   r.Get("product_id", "sku"),
			Destination: r.Get("destination", "territory_code"),
		})
	}
	return out
}

func toClientInvoices(records []Record) []domain.ClientInvoice {
	out := make([]domain.ClientInvoice, 0, len(records))
	for _, r := range records {
		number := r.Get("invoice_number", "numero_facture", "number", "invoice_no")
		if number == "" {
			continue
		}
		out = append(out, domain.ClientInvoice{
			InvoiceNumber: number,
			FlowCode:      r.Get("flow_code", "code_flux"),
			ShipmentRef:   r.Get("shipment_ref", "ref_expedition", "shipment"),
			AWB:           r.Get("awb", "lta"),
			BL:            r.Get("bl", "bill_of_lading"),
			InvoiceDate:   isoDate(r.Get("invoice_date", "date")),
			ClientID:      r.Get("client_id", "client_code"),
			ClientName:    r.Get("client_name", "client", "nom_client"),
			Destination:   r.Get("destination", "territory_code"),
			Incoterm:      strings.ToUpper(r.Get("incoterm")),
			Forwarder:     r.Get("forwarder", "transitaire"),
			TotalHT:       coerce.Number(r.Get("total_ht", "invoice_ht", "montant_ht"), 0),
			TransitFee:    optionalNumber(r.Get("transit_fee", "frais_transit")),
		})
	}
	return out
}

// toCostDocs builds documents from the header file and attaches the lines
// file rows by doc_number (or supplier + doc_number when both are given).
func toCostDocs(docRecords, lineRecords []Record) []domain.CostDoc {
	docs := make([]domain.CostDoc, 0, len(docRecords))
	index := make(map[string]int, len(docRecords))

	for _, r := range docRecords {
		number := r.Get("doc_number", "numero", "document_number")
		if number == "" {
			continue
		}
		d := domain.CostDoc{
			Supplier:      r.Get("supplier", "fournisseur"),
			DocNumber:     number,
			DocDate:       isoDate(r.Get("doc_date", "date")),
			InvoiceNumber: r.Get("invoice_number", "numero_facture"),
			FlowCode:      r.Get("flow_code", "code_flux"),
			ShipmentRef:   r.Get("shipment_ref", "ref_expedition"),
			AWB:           r.Get("awb", "lta"),
			BL:            r.Get("bl", "bill_of_lading"),
			Forwarder:     r.Get("forwarder", "transitaire"),
			Lines:         []domain.CostDocLine{},
		}
		index[docKey(d.Supplier, d.DocNumber)] = len(docs)
		index[docKey("", d.DocNumber)] = len(docs)
		docs = append(docs, d)
	}

	for _, r := range lineRecords {
		i, ok := index[docKey(r.Get("supplier", "fournisseur"), r.Get("doc_number", "numero", "document_number"))]
		if !ok {
			continue
		}
		docs[i].Lines = append(docs[i].Lines, domain.CostDocLine{
			Type:   domain.NormalizeCostType(r.Get("type", "cost_type", "type_cout")),
			Amount: coerce.Number(r.Get("amount", "montant", "montant_ht"), 0),
			Label:  r.Get("label", "libelle"),
		})
	}
	return docs
}

func docKey(supplier, number string) string {
	return strings.ToLower(strings.TrimSpace(supplier)) + "|" + strings.ToLower(strings.TrimSpace(number))
}
