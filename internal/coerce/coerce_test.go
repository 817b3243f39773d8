package coerce

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	ptr := 4.5
	cases := []struct {
		name     string
		value    any
		fallback float64
		want     float64
	}{
		{"comma decimal", "12,5", 0, 12.5},
		{"garbage uses fallback", "abc", 7, 7},
		{"nil", nil, 3, 3},
		{"blank", "   ", 2, 2},
		{"trimmed", "  42.25 ", 0, 42.25},
		{"thousands spaces", "1 234,50", 0, 1234.5},
		{"thousands dots", "1.234,50", 0, 1234.5},
		{"thousands commas", "1,234.50", 0, 1234.5},
		{"int", 12, 0, 12},
		{"int64", int64(-3), 0, -3},
		{"bytes", []byte("8,75"), 0, 8.75},
		{"pointer", &ptr, 0, 4.5},
		{"nil pointer", (*float64)(nil), 9, 9},
		{"decimal", decimal.RequireFromString("19.99"), 0, 19.99},
		{"NaN", math.NaN(), 1, 1},
		{"Inf", math.Inf(1), 1, 1},
		{"bool", true, 5, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Number(tc.value, tc.fallback)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestOptionalNumber(t *testing.T) {
	v, ok := OptionalNumber("0")
	assert.True(t, ok)
	assert.Zero(t, v)

	_, ok = OptionalNumber(nil)
	assert.False(t, ok)

	_, ok = OptionalNumber("n/a")
	assert.False(t, ok)
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "GP", Text("  GP "))
	assert.Equal(t, "12", Text(12))
	assert.Equal(t, "FR-01", Text([]byte(" FR-01")))
}

func TestMatchesDateRange(t *testing.T) {
	assert.True(t, MatchesDateRange("", "", ""), "no bounds accepts anything")
	assert.True(t, MatchesDateRange("garbage", "", ""))
	assert.False(t, MatchesDateRange("", "2024-01-01", ""))
	assert.False(t, MatchesDateRange("not a date", "2024-01-01", "2024-12-31"))

	assert.True(t, MatchesDateRange("2024-01-01", "2024-01-01", "2024-01-31"), "start is inclusive")
	assert.True(t, MatchesDateRange("2024-01-31", "2024-01-01", "2024-01-31"), "end is inclusive")
	assert.True(t, MatchesDateRange("2024-01-31T18:30:00Z", "2024-01-01", "2024-01-31"))
	assert.False(t, MatchesDateRange("2024-02-01", "2024-01-01", "2024-01-31"))
	assert.False(t, MatchesDateRange("2023-12-31", "2024-01-01", ""))
	assert.True(t, MatchesDateRange("15/01/2024", "2024-01-01", "2024-01-31"))
}

func TestMatchesDateRangeEndOfDay(t *testing.T) {
	assert.True(t, MatchesDateRange("2024-03-31T18:00:00Z", "2024-03-01", "2024-03-31"), "timestamp on the end day")
	assert.True(t, MatchesDateRange("2024-03-31T23:59:59.999Z", "2024-03-01", "2024-03-31"))
	assert.False(t, MatchesDateRange("2024-04-01T00:00:00Z", "2024-03-01", "2024-03-31"))

	// A timestamp bound is compared as is.
	assert.False(t, MatchesDateRange("2024-03-31T18:00:00Z", "2024-03-01", "2024-03-31T12:00:00Z"))
	assert.True(t, MatchesDateRange("2024-03-31T12:00:00Z", "2024-03-01", "2024-03-31T12:00:00Z"))
}

func TestFoldHelpers(t *testing.T) {
	assert.True(t, EqualFold(" ddp", "DDP "))
	assert.True(t, ContainsFold("Guadeloupe (GP)", "gp"))
	assert.False(t, ContainsFold("MQ", "GP"))
	assert.Equal(t, "b", FirstNonEmpty("", "  ", "b", "c"))
}
