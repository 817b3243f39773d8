package domain

import "strings"

type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// RiskTag classifies a reconciliation case. A case can carry several.
type RiskTag string

const (
	RiskLoss             RiskTag = "PERTE"
	RiskLowMargin        RiskTag = "MARGE_FAIBLE"
	RiskTransitUncovered RiskTag = "TRANSIT_NON_COUVERT"
)

var riskTagLabels = map[RiskTag]string{
	RiskLoss:             "Perte",
	RiskLowMargin:        "Marge faible",
	RiskTransitUncovered: "Transit non couvert",
}

var riskTagCodes = map[string]RiskTag{
	"perte":               RiskLoss,
	"marge_faible":        RiskLowMargin,
	"transit_non_couvert": RiskTransitUncovered,
}

// RiskTagLabel returns a human-readable label for a risk tag.
func RiskTagLabel(tag RiskTag) string {
	if label, ok := riskTagLabels[tag]; ok {
		return label
	}

	return string(tag)
}

// ParseRiskTag returns the tag for a given code (case-insensitive).
func ParseRiskTag(code string) (RiskTag, bool) {
	tag, ok := riskTagCodes[strings.ToLower(strings.TrimSpace(code))]

	return tag, ok
}

// Cost document line types.
const (
	CostTypeTransport    = "transport"
	CostTypeDouane       = "douane"
	CostTypeTransit      = "transit"
	CostTypeFraisDossier = "frais_dossier"
	CostTypeAssurance    = "assurance"
	CostTypeAutre        = "autre"
)

var knownCostTypes = map[string]struct{}{
	CostTypeTransport:    {},
	CostTypeDouane:       {},
	CostTypeTransit:      {},
	CostTypeFraisDossier: {},
	CostTypeAssurance:    {},
	CostTypeAutre:        {},
}

// NormalizeCostType lowercases a line type and maps unknown values to "autre".
func NormalizeCostType(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, " ", "_")
	if _, ok := knownCostTypes[v]; ok {
		return v
	}
	return CostTypeAutre
}
