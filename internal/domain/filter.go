package domain

import (
	"strconv"
	"strings"
	"time"
)

// Sentinel selector values.
const (
	FilterAll     = "all"
	FilterCurrent = "current"
)

// EntryFilter is a composite predicate over the ledger. Every set field is
// ANDed. Unknown or malformed values mean "no constraint".
type EntryFilter struct {
	// Query matches case-insensitively against the description and the
	// client's name, email, instagram handle and phone.
	Query         string
	PaymentMethod string
	Category      string
	Status        string

	// UseDateRange selects the explicit range mode; Month and Year are then
	// ignored. Either bound may be nil for an open range.
	UseDateRange bool
	StartDate    *time.Time
	EndDate      *time.Time

	// Month is "all", "current" or "0".."11" (January is 0).
	Month string
	// Year is "all", "current" or a literal year.
	Year string
}

// FilterEntries returns the entries matching f. "current" selectors resolve
// against now, so the result depends on when it is evaluated. Input order is
// preserved but carries no meaning.
func FilterEntries(entries []*Entry, f EntryFilter, clients ClientIndex, now time.Time) []*Entry {
	p := compileFilter(f, now)

	result := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if p.match(e, clients) {
			result = append(result, e)
		}
	}
	return result
}

type predicate struct {
	query         string
	paymentMethod string
	category      string
	status        SettlementStatus

	useRange bool
	start    *time.Time
	end      *time.Time

	month    time.Month
	hasMonth bool
	year     int
	hasYear  bool
}

func compileFilter(f EntryFilter, now time.Time) predicate {
	p := predicate{
		query: strings.ToLower(strings.TrimSpace(f.Query)),
	}

	if !isAll(f.PaymentMethod) {
		p.paymentMethod = f.PaymentMethod
	}
	if !isAll(f.Category) {
		p.category = f.Category
	}
	if status := SettlementStatus(strings.ToLower(strings.TrimSpace(f.Status))); status.IsValid() {
		p.status = status
	}

	if f.UseDateRange {
		p.useRange = true
		if f.StartDate != nil {
			start := DateOf(*f.StartDate)
			p.start = &start
		}
		if f.EndDate != nil {
			end := DateOf(*f.EndDate)
			p.end = &end
		}
		return p
	}

	p.month, p.hasMonth = resolveMonth(f.Month, now)
	p.year, p.hasYear = resolveYear(f.Year, now)

	return p
}

func (p predicate) match(e *Entry, clients ClientIndex) bool {
	if p.paymentMethod != "" && e.PaymentMethod != p.paymentMethod {
		return false
	}
	if p.category != "" && e.Category != p.category {
		return false
	}
	if p.status != "" && e.Status != p.status {
		return false
	}

	date := DateOf(e.Date)
	if p.useRange {
		if p.start != nil && date.Before(*p.start) {
			return false
		}
		if p.end != nil && date.After(*p.end) {
			return false
		}
	} else {
		if p.hasMonth && date.Month() != p.month {
			return false
		}
		if p.hasYear && date.Year() != p.year {
			return false
		}
	}

	if p.query != "" && !matchesQuery(e, clients, p.query) {
		return false
	}

	return true
}

func matchesQuery(e *Entry, clients ClientIndex, query string) bool {
	fields := []string{e.Description, e.ClientName}
	if c, ok := clients[e.ClientID]; ok && e.ClientID != "" {
		fields = append(fields, c.Name, c.Email, c.Instagram, c.Phone)
	}

	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FilterAll)
}

func resolveMonth(v string, now time.Time) (time.Month, bool) {
	v = strings.TrimSpace(v)
	if isAll(v) {
		return 0, false
	}
	if strings.EqualFold(v, FilterCurrent) {
		return now.Month(), true
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 11 {
		return 0, false
	}
	return time.Month(n + 1), true
}

func resolveYear(v string, now time.Time) (int, bool) {
	v = strings.TrimSpace(v)
	if isAll(v) {
		return 0, false
	}
	if strings.EqualFold(v, FilterCurrent) {
		return now.Year(), true
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
