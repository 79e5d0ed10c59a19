package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"agenda/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	path    string
	queries *Queries
}

// dsn enables foreign keys on every pooled connection and waits on a locked
// database instead of failing immediately.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewSQLiteRepository opens (creating if needed) the agenda database at
// dbPath and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		path:    dbPath,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// Ping checks that the database file is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AddClient inserts a client and returns its id.
func (r *SQLiteRepository) AddClient(ctx context.Context, in core.ClientInput) (int64, error) {
	in = in.Normalize()
	id, err := r.queries.CreateClient(ctx, clientParams(in))
	if err != nil {
		return 0, fmt.Errorf("create client: %w", err)
	}

	slog.InfoContext(ctx, "Client saved to SQLite", "id", id, "name", in.Name)
	return id, nil
}

// UpdateClient overwrites every field of the client. Unknown ids are ignored.
func (r *SQLiteRepository) UpdateClient(ctx context.Context, id int64, in core.ClientInput) error {
	n, err := r.queries.UpdateClient(ctx, id, clientParams(in.Normalize()))
	if err != nil {
		return fmt.Errorf("update client %d: %w", id, err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Client update matched no rows", "id", id)
	}
	return nil
}

// DeleteClient detaches the client's services and deletes the client in a
// single transaction.
func (r *SQLiteRepository) DeleteClient(ctx context.Context, id int64) error {
	var detached int64
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		detached, err = q.DetachServicesFromClient(ctx, id)
		if err != nil {
			return fmt.Errorf("detach services: %w", err)
		}
		if _, err := q.DeleteClient(ctx, id); err != nil {
			return fmt.Errorf("delete client row: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete client %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Client deleted", "id", id, "detached_services", detached)
	return nil
}

// GetClient returns the client and true, or false when it does not exist.
func (r *SQLiteRepository) GetClient(ctx context.Context, id int64) (core.Client, bool, error) {
	rec, err := r.queries.GetClient(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Client{}, false, nil
	}
	if err != nil {
		return core.Client{}, false, fmt.Errorf("get client %d: %w", id, err)
	}
	return toClient(rec), true, nil
}

// ListClients returns every client ordered by name.
func (r *SQLiteRepository) ListClients(ctx context.Context) ([]core.Client, error) {
	recs, err := r.queries.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	clients := make([]core.Client, len(recs))
	for i, rec := range recs {
		clients[i] = toClient(rec)
	}
	return clients, nil
}

// AddService inserts a service and returns its id.
func (r *SQLiteRepository) AddService(ctx context.Context, in core.ServiceInput) (int64, error) {
	in = in.Normalize()
	id, err := r.queries.CreateService(ctx, serviceParams(in))
	if err != nil {
		return 0, fmt.Errorf("create service: %w", err)
	}

	slog.InfoContext(ctx, "Service saved to SQLite",
		"id", id,
		"date", in.Date.String(),
		"client", in.Client.String(),
		"amount_cents", in.Amount.Cents,
		"status", in.Status)
	return id, nil
}

// GetService returns the service and true, or false when it does not exist.
func (r *SQLiteRepository) GetService(ctx context.Context, id int64) (core.Service, bool, error) {
	rec, err := r.queries.GetService(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Service{}, false, nil
	}
	if err != nil {
		return core.Service{}, false, fmt.Errorf("get service %d: %w", id, err)
	}
	s, err := toService(rec)
	if err != nil {
		return core.Service{}, false, err
	}
	return s, true, nil
}

// UpdateService overwrites every mutable field. Unknown ids are ignored.
func (r *SQLiteRepository) UpdateService(ctx context.Context, id int64, in core.ServiceInput) error {
	n, err := r.queries.UpdateService(ctx, id, serviceParams(in.Normalize()))
	if err != nil {
		return fmt.Errorf("update service %d: %w", id, err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Service update matched no rows", "id", id)
	}
	return nil
}

// DeleteService removes the service row.
func (r *SQLiteRepository) DeleteService(ctx context.Context, id int64) error {
	if _, err := r.queries.DeleteService(ctx, id); err != nil {
		return fmt.Errorf("delete service %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Service deleted", "id", id)
	return nil
}

// ListServices returns services joined with their client, filtered to
// [rng.Start, rng.End) when the range is bounded.
func (r *SQLiteRepository) ListServices(ctx context.Context, rng core.DateRange) ([]core.ServiceRow, error) {
	var (
		recs []ServiceWithClientRecord
		err  error
	)
	if rng.Bounded() {
		recs, err = r.queries.ListServicesInRange(ctx, rng.Start.String(), rng.End.String())
	} else {
		recs, err = r.queries.ListAllServices(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list services (%s): %w", rng, err)
	}

	rows := make([]core.ServiceRow, 0, len(recs))
	for _, rec := range recs {
		s, err := toService(rec.ServiceRecord)
		if err != nil {
			return nil, err
		}
		rows = append(rows, core.ServiceRow{Service: s, Linked: linkedClient(rec)})
	}
	return rows, nil
}

// CountServicesForClient returns how many services reference the client.
func (r *SQLiteRepository) CountServicesForClient(ctx context.Context, clientID int64) (int64, error) {
	n, err := r.queries.CountServicesForClient(ctx, clientID)
	if err != nil {
		return 0, fmt.Errorf("count services for client %d: %w", clientID, err)
	}
	return n, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func clientParams(in core.ClientInput) ClientParams {
	return ClientParams{Name: in.Name, Phone: in.Phone, Address: in.Address, Notes: in.Notes}
}

func serviceParams(in core.ServiceInput) ServiceParams {
	p := ServiceParams{
		ServiceDate: in.Date.String(),
		ServiceType: in.Type,
		AmountCents: in.Amount.Cents,
		Status:      string(in.Status),
		Notes:       in.Notes,
	}
	if in.Time.Valid {
		p.ServiceTime = sql.NullString{String: in.Time.String(), Valid: true}
	}
	if id, ok := in.Client.Get(); ok {
		p.ClientID = sql.NullInt64{Int64: id, Valid: true}
	}
	return p
}

func toClient(rec ClientRecord) core.Client {
	return core.Client{
		ID:      rec.ID,
		Name:    rec.Name,
		Phone:   rec.Phone.String,
		Address: rec.Address.String,
		Notes:   rec.Notes.String,
	}
}

func toService(rec ServiceRecord) (core.Service, error) {
	date, err := core.ParseDate(rec.ServiceDate)
	if err != nil {
		return core.Service{}, fmt.Errorf("service %d: %w", rec.ID, err)
	}
	// A malformed stored time is shown as missing rather than failing the listing.
	tod, err := core.ParseTimeOfDay(rec.ServiceTime.String)
	if err != nil {
		tod = core.TimeOfDay{}
	}
	ref := core.NoClient()
	if rec.ClientID.Valid {
		ref = core.ClientID(rec.ClientID.Int64)
	}
	return core.Service{
		ID:     rec.ID,
		Date:   date,
		Time:   tod,
		Client: ref,
		Type:   rec.ServiceType.String,
		Amount: core.Money{Cents: rec.AmountCents},
		Status: core.PaymentStatus(rec.Status),
		Notes:  rec.Notes.String,
	}, nil
}

func linkedClient(rec ServiceWithClientRecord) core.LinkedClient {
	switch {
	case !rec.ClientID.Valid:
		return core.LinkedClient{State: core.LinkNone}
	case !rec.ClientName.Valid:
		return core.LinkedClient{State: core.LinkMissing}
	}
	return core.LinkedClient{
		State:   core.LinkActive,
		Name:    rec.ClientName.String,
		Phone:   rec.ClientPhone.String,
		Address: rec.ClientAddress.String,
	}
}
