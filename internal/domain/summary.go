package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the fixed-shape reduction of a set of entries. Totals only count
// settled entries; pending amounts are reported separately.
type Summary struct {
	TotalIncome    decimal.Decimal
	TotalExpense   decimal.Decimal
	PendingIncome  decimal.Decimal
	PendingExpense decimal.Decimal
	NetBalance     decimal.Decimal
}

// Summarize reduces entries into a Summary. It does not filter; pass entries
// already narrowed to the period of interest. An empty set yields all zeros.
func Summarize(entries []*Entry) Summary {
	s := Summary{
		TotalIncome:    decimal.Zero,
		TotalExpense:   decimal.Zero,
		PendingIncome:  decimal.Zero,
		PendingExpense: decimal.Zero,
	}

	for _, e := range entries {
		switch {
		case e.Kind == KindIncome && e.Status == StatusSettled:
			s.TotalIncome = s.TotalIncome.Add(e.Amount)
		case e.Kind == KindIncome && e.Status == StatusPending:
			s.PendingIncome = s.PendingIncome.Add(e.Amount)
		case e.Kind == KindExpense && e.Status == StatusSettled:
			s.TotalExpense = s.TotalExpense.Add(e.Amount)
		case e.Kind == KindExpense && e.Status == StatusPending:
			s.PendingExpense = s.PendingExpense.Add(e.Amount)
		}
	}

	s.NetBalance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// SortEntries orders entries newest first, breaking ties by id so the order
// is deterministic.
func SortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// PeriodLabel describes the period a filter selects, for report headers.
func PeriodLabel(f EntryFilter, now time.Time) string {
	if f.UseDateRange {
		switch {
		case f.StartDate != nil && f.EndDate != nil:
			return fmt.Sprintf("%s a %s", f.StartDate.Format("02/01/2006"), f.EndDate.Format("02/01/2006"))
		case f.StartDate != nil:
			return "A partir de " + f.StartDate.Format("02/01/2006")
		case f.EndDate != nil:
			return "Até " + f.EndDate.Format("02/01/2006")
		default:
			return "Todo o período"
		}
	}

	month, hasMonth := resolveMonth(f.Month, now)
	year, hasYear := resolveYear(f.Year, now)

	switch {
	case hasMonth && hasYear:
		return fmt.Sprintf("%s de %d", monthNames[month-1], year)
	case hasMonth:
		return monthNames[month-1] + " (todos os anos)"
	case hasYear:
		return fmt.Sprintf("Ano de %d", year)
	default:
		return "Todo o período"
	}
}
