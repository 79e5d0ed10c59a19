package core

import (
	"sort"
	"strings"
)

// DateRange is a half-open interval [Start, End) of calendar days. A range
// missing either bound matches every date.
type DateRange struct {
	Start Date
	End   Date
}

// Summary aggregates the amounts of a set of services by payment status.
type Summary struct {
	PaidTotal    Money
	PendingTotal Money
	Count        int
}

// DayCount is the number of services scheduled on one day.
type DayCount struct {
	Date  Date
	Count int
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year    int
	Month   int // 1-12
	Range   DateRange
	Summary Summary
	Days    []DayCount
	Rows    []ServiceRow
}

// ServiceFilter narrows an agenda listing after it was loaded.
type ServiceFilter struct {
	Statuses    []PaymentStatus
	ClientQuery string
}

// MonthBounds returns [first day of month, first day of next month).
// December rolls over into January of the next year.
func MonthBounds(year, month int) (Date, Date) {
	first := NewDate(year, month, 1)
	var next Date
	if month == 12 {
		next = NewDate(year+1, 1, 1)
	} else {
		next = NewDate(year, month+1, 1)
	}
	return first, next
}

// MonthRange is MonthBounds as a DateRange.
func MonthRange(year, month int) DateRange {
	start, end := MonthBounds(year, month)
	return DateRange{Start: start, End: end}
}

// Bounded reports whether both ends of the range are set.
func (r DateRange) Bounded() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Contains reports whether d falls in [Start, End). Unbounded ranges
// contain every date.
func (r DateRange) Contains(d Date) bool {
	if !r.Bounded() {
		return true
	}
	return !d.Before(r.Start.Time) && d.Before(r.End.Time)
}

func (r DateRange) String() string {
	if !r.Bounded() {
		return "all"
	}
	return r.Start.String() + ".." + r.End.String()
}

// MonthlySummary sums amounts by status and counts rows.
func MonthlySummary(rows []ServiceRow) Summary {
	var s Summary
	for _, r := range rows {
		switch r.Status {
		case StatusPaid:
			s.PaidTotal = s.PaidTotal.Add(r.Amount)
		case StatusPending:
			s.PendingTotal = s.PendingTotal.Add(r.Amount)
		}
	}
	s.Count = len(rows)
	return s
}

// DailyCountMap groups rows by service date.
func DailyCountMap(rows []ServiceRow) map[Date]int {
	counts := make(map[Date]int)
	for _, r := range rows {
		counts[DateOf(r.Date.Time)]++
	}
	return counts
}

// DailyCounts is DailyCountMap ordered by date.
func DailyCounts(rows []ServiceRow) []DayCount {
	m := DailyCountMap(rows)
	out := make([]DayCount, 0, len(m))
	for d, n := range m {
		out = append(out, DayCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// Apply returns the rows matching the filter. An empty status list keeps
// every status; the client query is a case-insensitive substring match on
// the joined client name.
func (f ServiceFilter) Apply(rows []ServiceRow) []ServiceRow {
	q := strings.ToLower(strings.TrimSpace(f.ClientQuery))
	out := make([]ServiceRow, 0, len(rows))
	for _, r := range rows {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.ClientName()), q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsStatus(list []PaymentStatus, s PaymentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
