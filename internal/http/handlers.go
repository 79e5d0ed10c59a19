package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"agenda/internal/core"
	applog "agenda/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.agenda.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if s.agenda.SheetsExportEnabled() {
		checks["sheets_export"] = "enabled"
	} else {
		checks["sheets_export"] = "disabled"
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	servicesSaved := atomic.LoadInt64(&s.appMetrics.servicesSaved)
	clientsSaved := atomic.LoadInt64(&s.appMetrics.clientsSaved)
	exports := atomic.LoadInt64(&s.appMetrics.exports)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_request_duration_avg_seconds Mean request duration\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_seconds gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_seconds %.6f\n\n", traceMetrics.AverageResponseTime().Seconds())

	fmt.Fprintf(w, "# HELP services_saved_total Services created or updated\n")
	fmt.Fprintf(w, "# TYPE services_saved_total counter\n")
	fmt.Fprintf(w, "services_saved_total %d\n\n", servicesSaved)

	fmt.Fprintf(w, "# HELP clients_saved_total Clients created or updated\n")
	fmt.Fprintf(w, "# TYPE clients_saved_total counter\n")
	fmt.Fprintf(w, "clients_saved_total %d\n\n", clientsSaved)

	fmt.Fprintf(w, "# HELP exports_total Workbooks downloaded or queued\n")
	fmt.Fprintf(w, "# TYPE exports_total counter\n")
	fmt.Fprintf(w, "exports_total %d\n\n", exports)

	fmt.Fprintf(w, "# HELP cache_entries Cached agenda reads\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries %d\n\n", s.agenda.CacheEntries())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}

type indexPage struct {
	Panel         agendaPanel
	Form          serviceFormView
	SheetsEnabled bool
}

// handleIndex renders the month agenda with the booking form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	today := core.DateOf(s.now())
	month := ParseMonthParams(query, s.now())

	filter, err := ParseFilter(query)
	if err != nil {
		s.fail(w, r, applog.OpParse, err)
		return
	}

	panel, err := s.agendaPanel(ctx, month, filter, today)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	clients, err := s.agenda.ListClients(ctx)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}

	formDate := today
	if month.Year != today.Year() || month.Month != int(today.Month()) {
		formDate = core.NewDate(month.Year, month.Month, 1)
	}

	s.render(w, r, NewHTMXResponse(), "index_page", indexPage{
		Panel:         panel,
		Form:          newServiceForm(clients, formDate),
		SheetsEnabled: s.agenda.SheetsExportEnabled(),
	})
}

func (s *Server) agendaPanel(ctx context.Context, month MonthParams, filter core.ServiceFilter, today core.Date) (agendaPanel, error) {
	ov, err := s.agenda.MonthOverview(ctx, month.Year, month.Month)
	if err != nil {
		return agendaPanel{}, err
	}
	applog.FromContext(ctx).DebugContext(ctx, "Month overview loaded",
		applog.NewFields().
			WithMonth(month.Year, month.Month).
			WithOperation(applog.OpList).
			ToSlice()...)
	return newAgendaPanel(ov, filter, newMonthNav(month, today)), nil
}

// handleAgendaPanel renders the month table partial refreshed by HTMX.
func (s *Server) handleAgendaPanel(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	month := ParseMonthParams(query, s.now())
	filter, err := ParseFilter(query)
	if err != nil {
		s.fail(w, r, applog.OpParse, err)
		return
	}

	panel, err := s.agendaPanel(r.Context(), month, filter, core.DateOf(s.now()))
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, NewHTMXResponse(), "agenda_panel", panel)
}
