// Package agenda is the entry point used by the web surface and commands. It
// validates input, serves reads through a short-lived cache and clears that
// cache after every successful write.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"agenda/internal/cache"
	"agenda/internal/core"
	"agenda/internal/export"
)

const (
	DefaultCacheTTL        = 5 * time.Second
	DefaultCacheMaxEntries = 64
)

var (
	// ErrExportQueueUnavailable is returned by RequestSheetsExport when no
	// queue publisher was configured.
	ErrExportQueueUnavailable = errors.New("export queue not configured")
	ErrUnknownClient          = errors.New("client does not exist")
	ErrInvalidMonth           = errors.New("invalid month")
)

// Store is the persistence the agenda works on.
type Store interface {
	AddClient(ctx context.Context, in core.ClientInput) (int64, error)
	UpdateClient(ctx context.Context, id int64, in core.ClientInput) error
	DeleteClient(ctx context.Context, id int64) error
	GetClient(ctx context.Context, id int64) (core.Client, bool, error)
	ListClients(ctx context.Context) ([]core.Client, error)
	CountServicesForClient(ctx context.Context, clientID int64) (int64, error)

	AddService(ctx context.Context, in core.ServiceInput) (int64, error)
	GetService(ctx context.Context, id int64) (core.Service, bool, error)
	UpdateService(ctx context.Context, id int64, in core.ServiceInput) error
	DeleteService(ctx context.Context, id int64) error
	ListServices(ctx context.Context, rng core.DateRange) ([]core.ServiceRow, error)

	Ping(ctx context.Context) error
}

// ExportPublisher queues a request to write a range to the remote spreadsheet.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, rng core.DateRange) error
}

type Agenda struct {
	store     Store
	publisher ExportPublisher

	caches   *cache.Manager
	clients  *cache.LRUCache[[]core.Client]
	services *cache.LRUCache[[]core.ServiceRow]

	// generation changes on every invalidation so loads started before a
	// write never repopulate the cache or get shared with later readers.
	mu         sync.RWMutex
	generation atomic.Uint64
	group      singleflight.Group
}

type Option func(*options)

type options struct {
	clock      cache.Clock
	ttl        time.Duration
	maxEntries int
	publisher  ExportPublisher
}

// WithClock sets the clock the read caches use to expire entries.
func WithClock(c cache.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithCacheTTL sets how long a cached read is served.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

func WithCacheMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithPublisher enables RequestSheetsExport.
func WithPublisher(p ExportPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func New(store Store, opts ...Option) *Agenda {
	o := options{
		clock:      cache.SystemClock,
		ttl:        DefaultCacheTTL,
		maxEntries: DefaultCacheMaxEntries,
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Agenda{
		store:     store,
		publisher: o.publisher,
		caches:    cache.NewManager(),
		clients:   cache.NewLRUCache[[]core.Client](o.maxEntries, o.ttl, cache.WithClock(o.clock)),
		services:  cache.NewLRUCache[[]core.ServiceRow](o.maxEntries, o.ttl, cache.WithClock(o.clock)),
	}
	a.caches.Register(a.clients)
	a.caches.Register(a.services)
	return a
}

// InvalidateCache drops every cached read.
func (a *Agenda) InvalidateCache() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation.Add(1)
	a.caches.ClearAll()
}

// CacheEntries returns the number of reads currently cached.
func (a *Agenda) CacheEntries() int {
	return a.caches.Size()
}

// RunCacheJanitor drops expired cache entries every interval until ctx is
// done. Reads already skip expired entries; this only reclaims memory.
func (a *Agenda) RunCacheJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.caches.CleanExpired(); removed > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "removed", removed)
			}
		}
	}
}

// write runs a mutation and clears the read caches once it has succeeded.
// A failed write leaves the caches untouched.
func (a *Agenda) write(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		slog.ErrorContext(ctx, "Agenda write failed", "op", op, "error", err)
		return err
	}
	a.InvalidateCache()
	return nil
}

// cachedRead serves key from c or loads it, collapsing concurrent loads.
// The shared load is detached from the caller's cancellation; each caller
// still stops waiting when its own context ends.
func cachedRead[T any](ctx context.Context, a *Agenda, c *cache.LRUCache[[]T], key string, load func(ctx context.Context) ([]T, error)) ([]T, error) {
	if v, ok := c.Get(key); ok {
		return slices.Clone(v), nil
	}

	gen := a.generation.Load()
	flightKey := key + "#" + strconv.FormatUint(gen, 10)
	loadCtx := context.WithoutCancel(ctx)
	ch := a.group.DoChan(flightKey, func() (interface{}, error) {
		items, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		a.mu.RLock()
		if a.generation.Load() == gen {
			c.Set(key, items)
		}
		a.mu.RUnlock()
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]T)), nil
	}
}

// AddClient validates and stores a new client.
func (a *Agenda) AddClient(ctx context.Context, in core.ClientInput) (int64, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := a.write(ctx, "add_client", func(ctx context.Context) error {
		var err error
		id, err = a.store.AddClient(ctx, in)
		return err
	})
	return id, err
}

// UpdateClient overwrites a client. Unknown ids are a no-op.
func (a *Agenda) UpdateClient(ctx context.Context, id int64, in core.ClientInput) error {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	return a.write(ctx, "update_client", func(ctx context.Context) error {
		return a.store.UpdateClient(ctx, id, in)
	})
}

// DeleteClient removes a client; its services stay with no client.
func (a *Agenda) DeleteClient(ctx context.Context, id int64) error {
	return a.write(ctx, "delete_client", func(ctx context.Context) error {
		return a.store.DeleteClient(ctx, id)
	})
}

// GetClient is an uncached point lookup.
func (a *Agenda) GetClient(ctx context.Context, id int64) (core.Client, bool, error) {
	return a.store.GetClient(ctx, id)
}

// ListClients returns all clients ordered by name.
func (a *Agenda) ListClients(ctx context.Context) ([]core.Client, error) {
	return cachedRead(ctx, a, a.clients, "clients", a.store.ListClients)
}

// CountServicesForClient returns how many services a delete of the client
// would detach. Not cached.
func (a *Agenda) CountServicesForClient(ctx context.Context, clientID int64) (int64, error) {
	return a.store.CountServicesForClient(ctx, clientID)
}

// AddService validates and stores a new service.
func (a *Agenda) AddService(ctx context.Context, in core.ServiceInput) (int64, error) {
	in, err := a.prepareService(ctx, in)
	if err != nil {
		return 0, err
	}
	var id int64
	err = a.write(ctx, "add_service", func(ctx context.Context) error {
		var err error
		id, err = a.store.AddService(ctx, in)
		return err
	})
	return id, err
}

// AddServiceWithNewClient creates the client first and books the service
// for it.
func (a *Agenda) AddServiceWithNewClient(ctx context.Context, c core.ClientInput, in core.ServiceInput) (clientID, serviceID int64, err error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	in = in.Normalize()
	in.Client = core.NoClient()
	if err := in.Validate(); err != nil {
		return 0, 0, err
	}

	clientID, err = a.AddClient(ctx, c)
	if err != nil {
		return 0, 0, err
	}
	in.Client = core.ClientID(clientID)
	serviceID, err = a.AddService(ctx, in)
	if err != nil {
		return clientID, 0, err
	}
	return clientID, serviceID, nil
}

// GetService returns the service and whether it exists.
func (a *Agenda) GetService(ctx context.Context, id int64) (core.Service, bool, error) {
	return a.store.GetService(ctx, id)
}

// UpdateService overwrites a service. Unknown ids are a no-op.
func (a *Agenda) UpdateService(ctx context.Context, id int64, in core.ServiceInput) error {
	in, err := a.prepareService(ctx, in)
	if err != nil {
		return err
	}
	return a.write(ctx, "update_service", func(ctx context.Context) error {
		return a.store.UpdateService(ctx, id, in)
	})
}

func (a *Agenda) DeleteService(ctx context.Context, id int64) error {
	return a.write(ctx, "delete_service", func(ctx context.Context) error {
		return a.store.DeleteService(ctx, id)
	})
}

// ListServices returns services in [rng.Start, rng.End), or every service
// when the range is not bounded.
func (a *Agenda) ListServices(ctx context.Context, rng core.DateRange) ([]core.ServiceRow, error) {
	key := "services:" + rng.String()
	return cachedRead(ctx, a, a.services, key, func(ctx context.Context) ([]core.ServiceRow, error) {
		return a.store.ListServices(ctx, rng)
	})
}

// MonthOverview loads one month and computes its totals and per-day counts.
func (a *Agenda) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 || year < core.MinYear || year > core.MaxYear {
		return core.MonthOverview{}, ErrInvalidMonth
	}
	rng := core.MonthRange(year, month)
	rows, err := a.ListServices(ctx, rng)
	if err != nil {
		return core.MonthOverview{}, err
	}
	return core.MonthOverview{
		Year:    year,
		Month:   month,
		Range:   rng,
		Summary: core.MonthlySummary(rows),
		Days:    core.DailyCounts(rows),
		Rows:    rows,
	}, nil
}

// ExportRange writes an xlsx workbook with the services in rng and the
// client directory.
func (a *Agenda) ExportRange(ctx context.Context, w io.Writer, rng core.DateRange) error {
	wb, err := export.BuildWorkbook(ctx, a, rng)
	if err != nil {
		return err
	}
	if err := export.WriteXLSX(w, wb); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	slog.InfoContext(ctx, "Agenda exported", "range", rng.String(), "services", len(wb.Services))
	return nil
}

// RequestSheetsExport queues a Google Sheets export of rng.
func (a *Agenda) RequestSheetsExport(ctx context.Context, rng core.DateRange) error {
	if a.publisher == nil {
		return ErrExportQueueUnavailable
	}
	if err := a.publisher.PublishExportRequest(ctx, rng); err != nil {
		return fmt.Errorf("queue sheets export: %w", err)
	}
	return nil
}

// SheetsExportEnabled reports whether RequestSheetsExport can succeed.
func (a *Agenda) SheetsExportEnabled() bool {
	return a.publisher != nil
}

// Ping checks the store.
func (a *Agenda) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

func (a *Agenda) prepareService(ctx context.Context, in core.ServiceInput) (core.ServiceInput, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return in, err
	}
	if id, ok := in.Client.Get(); ok {
		_, found, err := a.store.GetClient(ctx, id)
		if err != nil {
			return in, err
		}
		if !found {
			return in, fmt.Errorf("%w: %d", ErrUnknownClient, id)
		}
	}
	return in, nil
}
