package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"agenda/internal/agenda"
	"agenda/internal/export"
	applog "agenda/internal/log"
)

// handleExportXLSX streams the selected range as an xlsx download. The
// workbook is built in memory so a failure still yields a clean error page.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rng, err := ParseRangeParams(r.URL.Query(), s.now())
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := s.agenda.ExportRange(ctx, &buf, rng); err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.exports, 1)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Export download interrupted",
			applog.FieldError, err,
			applog.FieldRange, rng.String())
	}
}

// handleRequestSheetsExport queues a Google Sheets export of the range.
func (s *Server) handleRequestSheetsExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, errResp := ParseBodyOrFail(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	query := r.URL.Query()
	for _, key := range []string{"year", "month", "start", "end", "all"} {
		if v := p.Get(key); v != "" {
			query.Set(key, v)
		}
	}
	rng, err := ParseRangeParams(query, s.now())
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}

	if err := s.agenda.RequestSheetsExport(ctx, rng); err != nil {
		if errors.Is(err, agenda.ErrExportQueueUnavailable) {
			ServiceUnavailableError("Google Sheets export is not configured").Write(w)
			return
		}
		s.events.LogError(ctx, "Sheets export request failed", err, applog.ErrorTypeNetwork, applog.OpExport,
			applog.LogFields{applog.FieldRange: rng.String()})
		ServiceUnavailableError("Could not queue the export, try again later").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.exports, 1)
	applog.FromContext(ctx).InfoContext(ctx, "Sheets export queued", applog.FieldRange, rng.String())
	NewHTMXResponse().
		TriggerSuccessNotification("Export to Google Sheets queued").
		BodyHTML(`<div class="success">Export queued for ` + rangeLabel(rng.String()) + `</div>`).
		Write(w)
}

func rangeLabel(s string) string {
	if s == "all" {
		return "all services"
	}
	return s
}
