package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"agenda/internal/agenda"
	"agenda/internal/core"
)

// validationErrors are reported to the user as 422 with their message.
var validationErrors = []error{
	core.ErrEmptyClientName,
	core.ErrMissingDate,
	core.ErrInvalidDate,
	core.ErrInvalidTime,
	core.ErrInvalidAmount,
	core.ErrNegativeAmount,
	core.ErrInvalidStatus,
	agenda.ErrUnknownClient,
	agenda.ErrInvalidMonth,
	errInvalidClientID,
	errInvalidRange,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validationMessage is the user-facing text for a validation error.
func validationMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Invalid data"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// sanitizeInput removes control characters (except tab, newline, carriage
// return) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// barWidth scales n against peak to a percentage, keeping non-zero values
// visible.
func barWidth(n, peak int) int {
	if peak <= 0 || n <= 0 {
		return 0
	}
	width := (n*100 + peak/2) / peak
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// monthLabel renders "May 2024".
func monthLabel(year, month int) string {
	return time.Month(month).String() + " " + strconv.Itoa(year)
}

// shiftMonth moves year/month by delta months.
func shiftMonth(year, month, delta int) (int, int) {
	t := time.Date(year, time.Month(month)+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), int(t.Month())
}
