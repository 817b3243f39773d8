// Package rates selects the applicable reference rate rows and keeps the
// loaded reference tables around for the life of the process.
package rates

import (
	"strings"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
)

// Filter narrows rate resolution. A zero At means now.
type Filter struct {
	Territory string
	At        time.Time
}

func (f Filter) at() time.Time {
	if f.At.IsZero() {
		return time.Now()
	}
	return f.At
}

// PickRate returns the row applicable to the filter.
//
// Reference tables are small and curated in priority order, so this is a
// filter rather than a ranking: the first row (input order) whose territory
// matches and whose validity window contains the instant wins. When nothing
// matches, or when no territory is given at all, the first row is returned.
// ok is false only when rows is empty.
func PickRate[T domain.RateRow](rows []T, filter Filter) (row T, ok bool) {
	if len(rows) == 0 {
		return row, false
	}

	territory := strings.TrimSpace(filter.Territory)
	if territory == "" {
		return rows[0], true
	}

	at := filter.at()
	for _, candidate := range rows {
		if TerritoryMatches(candidate.Territory(), territory) && ActiveAt(candidate, at) {
			return candidate, true
		}
	}

	return rows[0], true
}

// TerritoryMatches is the territory policy: case-insensitive, and a row
// code matches when it equals or contains the requested territory ("GP"
// matches "GP", "gp" and "GP-BASSE-TERRE"). A blank row code matches nothing.
func TerritoryMatches(code, requested string) bool {
	c := strings.ToLower(strings.TrimSpace(code))
	r := strings.ToLower(strings.TrimSpace(requested))
	if c == "" || r == "" {
		return false
	}
	return c == r || strings.Contains(c, r)
}

// ActiveAt reports whether the row's validity window contains at. Open
// bounds are unbounded.
func ActiveAt(row domain.RateRow, at time.Time) bool {
	start, end := row.Validity()
	if start != nil && at.Before(*start) {
		return false
	}
	if end != nil && at.After(*end) {
		return false
	}
	return true
}
