package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Period is a calendar month of a year.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Previous returns the month before p, rolling over into the prior year.
func (p Period) Previous() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// YearBefore returns the same month one year earlier.
func (p Period) YearBefore() Period {
	return Period{Year: p.Year - 1, Month: p.Month}
}

// Contains reports whether t falls within p.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}

// Growth compares net period revenue of the current month with the previous
// month and with the same month one year earlier.
type Growth struct {
	Current           decimal.Decimal
	Previous          decimal.Decimal
	SameMonthLastYear decimal.Decimal

	MonthlyDelta      decimal.Decimal
	MonthlyPercentage decimal.Decimal
	AnnualDelta       decimal.Decimal
	AnnualPercentage  decimal.Decimal
}

// NetPeriodRevenue is settled income minus settled expense within p.
func NetPeriodRevenue(entries []*Entry, p Period) decimal.Decimal {
	net := decimal.Zero
	for _, e := range entries {
		if e.Status != StatusSettled || !p.Contains(e.Date) {
			continue
		}
		switch e.Kind {
		case KindIncome:
			net = net.Add(e.Amount)
		case KindExpense:
			net = net.Sub(e.Amount)
		}
	}
	return net
}

// CalculateGrowth computes month-over-month and year-over-year growth for the
// month containing at, over the full unfiltered ledger.
func CalculateGrowth(entries []*Entry, at time.Time) Growth {
	current := PeriodOf(at)

	g := Growth{
		Current:           NetPeriodRevenue(entries, current),
		Previous:          NetPeriodRevenue(entries, current.Previous()),
		SameMonthLastYear: NetPeriodRevenue(entries, current.YearBefore()),
	}

	g.MonthlyDelta = g.Current.Sub(g.Previous)
	g.MonthlyPercentage = GrowthPercentage(g.Current, g.Previous)
	g.AnnualDelta = g.Current.Sub(g.SameMonthLastYear)
	g.AnnualPercentage = GrowthPercentage(g.Current, g.SameMonthLastYear)

	return g
}

// GrowthPercentage is (current-baseline)/|baseline|*100. A zero baseline
// counts as a flat 100% increase, unless current is zero too, which is no
// change at all.
func GrowthPercentage(current, baseline decimal.Decimal) decimal.Decimal {
	if baseline.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return current.Sub(baseline).Div(baseline.Abs()).Mul(hundred)
}
