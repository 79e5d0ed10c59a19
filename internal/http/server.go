package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"agenda/internal/core"
	applog "agenda/internal/log"
	"agenda/internal/middleware/security"
	"agenda/internal/middleware/trace"
	appweb "agenda/web"
)

// AgendaService is what the web surface needs from the agenda.
type AgendaService interface {
	AddClient(ctx context.Context, in core.ClientInput) (int64, error)
	UpdateClient(ctx context.Context, id int64, in core.ClientInput) error
	DeleteClient(ctx context.Context, id int64) error
	GetClient(ctx context.Context, id int64) (core.Client, bool, error)
	ListClients(ctx context.Context) ([]core.Client, error)
	CountServicesForClient(ctx context.Context, clientID int64) (int64, error)

	AddService(ctx context.Context, in core.ServiceInput) (int64, error)
	AddServiceWithNewClient(ctx context.Context, c core.ClientInput, in core.ServiceInput) (int64, int64, error)
	GetService(ctx context.Context, id int64) (core.Service, bool, error)
	UpdateService(ctx context.Context, id int64, in core.ServiceInput) error
	DeleteService(ctx context.Context, id int64) error

	MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
	ExportRange(ctx context.Context, w io.Writer, rng core.DateRange) error
	RequestSheetsExport(ctx context.Context, rng core.DateRange) error
	SheetsExportEnabled() bool
	CacheEntries() int
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	agenda          AgendaService
	templates       *template.Template
	logger          *applog.Logger
	events          *applog.StructuredLogger
	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics
	now             func() time.Time
}

type appMetrics struct {
	uptime        time.Time
	servicesSaved int64
	clientsSaved  int64
	exports       int64
}

// Option configures a Server.
type Option func(*Server)

// WithNow sets the clock used to pick the default month and form date.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer parses the embedded templates and wires routes and middleware,
// returning a ready-to-run http.Server.
func NewServer(addr string, a AgendaService, logger *applog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	t, err := template.New("agenda").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		agenda:          a,
		templates:       t,
		logger:          logger,
		events:          applog.NewStructuredLogger(logger),
		traceMiddleware: trace.NewMiddleware(extractClientIP),
		appMetrics:      &appMetrics{uptime: time.Now()},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/agenda", s.handleAgendaPanel)
	mux.HandleFunc("GET /ui/service-form", s.handleServiceForm)

	mux.HandleFunc("POST /services", s.handleCreateService)
	mux.HandleFunc("GET /services/{id}/edit", s.handleEditService)
	mux.HandleFunc("POST /services/{id}", s.handleUpdateService)
	mux.HandleFunc("DELETE /services/{id}", s.handleDeleteService)

	mux.HandleFunc("GET /clients", s.handleClients)
	mux.HandleFunc("GET /ui/clients", s.handleClientList)
	mux.HandleFunc("POST /clients", s.handleCreateClient)
	mux.HandleFunc("GET /clients/{id}/edit", s.handleEditClient)
	mux.HandleFunc("POST /clients/{id}", s.handleUpdateClient)
	mux.HandleFunc("DELETE /clients/{id}", s.handleDeleteClient)

	mux.Handle("GET /export.xlsx", security.NoStore(http.HandlerFunc(s.handleExportXLSX)))
	mux.HandleFunc("POST /export/sheets", s.handleRequestSheetsExport)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = applog.Middleware(logger, trace.GetRequestID)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// render executes a named template into a buffer first so a failing
// template never produces a half-written page, then writes it with the
// status and triggers of b.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("Could not render page").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

// fail maps err to a response: validation errors become 422 with their
// message, everything else is logged and reported as a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if isValidationError(err) {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	s.events.LogError(r.Context(), "Request failed", err, applog.ErrorTypeDatabase, op,
		applog.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
	InternalServerError("Something went wrong, the change was not saved").Write(w)
}
