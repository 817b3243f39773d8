// Package coerce turns loosely-typed field values coming from the store or
// from imported files into the numbers, strings and dates the engines use.
// Nothing here panics or returns an error; callers get a fallback instead.
package coerce

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Number converts value to a finite float64, returning fallback when that is
// not possible. Strings may use a comma as decimal separator and spaces as
// thousands separators ("1 234,50").
func Number(value any, fallback float64) float64 {
	var f float64
	switch v := value.(type) {
	case nil:
		return fallback
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case *float64:
		if v == nil {
			return fallback
		}
		f = *v
	case decimal.Decimal:
		f = v.InexactFloat64()
	case []byte:
		return parseNumber(string(v), fallback)
	case string:
		return parseNumber(v, fallback)
	case fmt.Stringer:
		return parseNumber(v.String(), fallback)
	default:
		return fallback
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// OptionalNumber is Number without a fallback: ok is false when value is
// absent or not numeric.
func OptionalNumber(value any) (float64, bool) {
	f := Number(value, math.NaN())
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseNumber(raw string, fallback float64) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback
	}
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.ReplaceAll(s, " ", "")
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		// "1.234,50"
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case comma >= 0 && dot >= 0:
		// "1,234.50"
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	f := d.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// Text returns the trimmed string form of value, or "" for nil.
func Text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	case *string:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(*v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate parses the date formats found in the store and in imported files.
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MatchesDateRange reports whether value falls within the inclusive [start, end]
// range. With no bound every value matches, even an empty one; with a bound, an
// absent or unparsable value never matches. An unparsable bound is ignored.
// Comparison is done on epoch milliseconds.
func MatchesDateRange(value, start, end string) bool {
	startTime, hasStart := ParseDate(start)
	endTime, hasEnd := ParseDate(end)
	if !hasStart && !hasEnd {
		return true
	}

	t, ok := ParseDate(value)
	if !ok {
		return false
	}

	ms := t.UnixMilli()
	if hasStart && ms < startTime.UnixMilli() {
		return false
	}
	if hasEnd && ms > endOfDay(end, endTime).UnixMilli() {
		return false
	}
	return true
}

// endOfDay widens a date-only upper bound to the end of that day so that
// timestamps on the last day are still included.
func endOfDay(raw string, t time.Time) time.Time {
	if len(strings.TrimSpace(raw)) == len("2006-01-02") {
		return t.Add(24*time.Hour - time.Millisecond)
	}
	return t
}

// EqualFold compares two trimmed values case-insensitively.
func EqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ContainsFold reports whether haystack contains needle, ignoring case and
// surrounding whitespace.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(
		strings.ToLower(strings.TrimSpace(haystack)),
		strings.ToLower(strings.TrimSpace(needle)),
	)
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
