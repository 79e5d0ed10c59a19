package sheets

import (
	"context"
	"fmt"
	"strings"

	"agenda/internal/core"
	"agenda/internal/export"
)

// Ports for outbound adapters.
type (
	// WorkbookWriter publishes an export workbook to a remote spreadsheet,
	// replacing tabs written for the same range before.
	WorkbookWriter interface {
		WriteWorkbook(ctx context.Context, wb export.Workbook) (tabs []string, err error)
	}
)

// TabTitle names the remote tab for one sheet of a range export, e.g.
// "Agenda 2024-05" for a calendar month or "Clients all" for everything.
func TabTitle(prefix, sheet string, rng core.DateRange) string {
	return strings.TrimSpace(prefix + sheet + " " + RangeLabel(rng))
}

// RangeLabel is "YYYY-MM" when rng is exactly one calendar month,
// "start..end" for other bounded ranges and "all" otherwise.
func RangeLabel(rng core.DateRange) string {
	if !rng.Bounded() {
		return "all"
	}
	s := rng.Start
	m := core.MonthRange(s.Year(), int(s.Month()))
	if s.Equal(m.Start.Time) && rng.End.Equal(m.End.Time) {
		return fmt.Sprintf("%04d-%02d", s.Year(), int(s.Month()))
	}
	return rng.String()
}
