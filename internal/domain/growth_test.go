package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateGrowth_FromZeroBaseline(t *testing.T) {
	t.Parallel()

	entries := []*Entry{
		entry("a", KindIncome, 500, StatusSettled, date(2024, time.March, 3)),
		entry("b", KindExpense, 50, StatusSettled, date(2024, time.March, 10)),
		entry("c", KindIncome, 999, StatusPending, date(2024, time.March, 12)),
	}

	g := CalculateGrowth(entries, date(2024, time.March, 20))

	assertDecimal(t, 450, g.Current, "Current")
	assertDecimal(t, 0, g.Previous, "Previous")
	assertDecimal(t, 450, g.MonthlyDelta, "MonthlyDelta")
	assertDecimal(t, 100, g.MonthlyPercentage, "MonthlyPercentage")
	assertDecimal(t, 450, g.AnnualDelta, "AnnualDelta")
	assertDecimal(t, 100, g.AnnualPercentage, "AnnualPercentage")
}

func TestCalculateGrowth_JanuaryRollsIntoDecember(t *testing.T) {
	t.Parallel()

	entries := []*Entry{
		entry("dec", KindIncome, 200, StatusSettled, date(2023, time.December, 28)),
		entry("jan", KindIncome, 300, StatusSettled, date(2024, time.January, 5)),
		entry("last-jan", KindIncome, 400, StatusSettled, date(2023, time.January, 5)),
	}

	g := CalculateGrowth(entries, date(2024, time.January, 15))

	assertDecimal(t, 300, g.Current, "Current")
	assertDecimal(t, 200, g.Previous, "Previous")
	assertDecimal(t, 400, g.SameMonthLastYear, "SameMonthLastYear")
	assertDecimal(t, 100, g.MonthlyDelta, "MonthlyDelta")
	assertDecimal(t, 50, g.MonthlyPercentage, "MonthlyPercentage")
	assertDecimal(t, -100, g.AnnualDelta, "AnnualDelta")
	assertDecimal(t, -25, g.AnnualPercentage, "AnnualPercentage")
}

func TestGrowthPercentage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		current  int64
		baseline int64
		expected int64
	}{
		{name: "both zero", current: 0, baseline: 0, expected: 0},
		{name: "zero baseline", current: 450, baseline: 0, expected: 100},
		{name: "zero baseline negative current", current: -30, baseline: 0, expected: 100},
		{name: "unchanged", current: 200, baseline: 200, expected: 0},
		{name: "doubled", current: 200, baseline: 100, expected: 100},
		{name: "negative baseline uses magnitude", current: 100, baseline: -100, expected: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrowthPercentage(decimal.NewFromInt(tt.current), decimal.NewFromInt(tt.baseline))
			assert.True(t, got.Equal(decimal.NewFromInt(tt.expected)), "expected %d, got %s", tt.expected, got)
		})
	}
}

func TestPeriod_Previous(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Period{Year: 2023, Month: time.December}, Period{Year: 2024, Month: time.January}.Previous())
	assert.Equal(t, Period{Year: 2024, Month: time.May}, Period{Year: 2024, Month: time.June}.Previous())
	assert.Equal(t, Period{Year: 2023, Month: time.June}, Period{Year: 2024, Month: time.June}.YearBefore())
}
