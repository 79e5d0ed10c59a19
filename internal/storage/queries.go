package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so the same queries run inside
// and outside transactions.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ClientRecord mirrors a row of the clients table.
type ClientRecord struct {
	ID      int64
	Name    string
	Phone   sql.NullString
	Address sql.NullString
	Notes   sql.NullString
}

// ServiceRecord mirrors a row of the services table.
type ServiceRecord struct {
	ID          int64
	ServiceDate string
	ServiceTime sql.NullString
	ClientID    sql.NullInt64
	ServiceType sql.NullString
	AmountCents int64
	Status      string
	Notes       sql.NullString
}

// ServiceWithClientRecord is a services row left-joined with clients.
type ServiceWithClientRecord struct {
	ServiceRecord
	ClientName    sql.NullString
	ClientPhone   sql.NullString
	ClientAddress sql.NullString
}

type ClientParams struct {
	Name    string
	Phone   string
	Address string
	Notes   string
}

type ServiceParams struct {
	ServiceDate string
	ServiceTime sql.NullString
	ClientID    sql.NullInt64
	ServiceType string
	AmountCents int64
	Status      string
	Notes       string
}

const createClient = `INSERT INTO clients (name, phone, address, notes) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateClient(ctx context.Context, arg ClientParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createClient, arg.Name, arg.Phone, arg.Address, arg.Notes)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const updateClient = `UPDATE clients SET name = ?, phone = ?, address = ?, notes = ? WHERE id = ?`

func (q *Queries) UpdateClient(ctx context.Context, id int64, arg ClientParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateClient, arg.Name, arg.Phone, arg.Address, arg.Notes, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const detachServicesFromClient = `UPDATE services SET client_id = NULL WHERE client_id = ?`

func (q *Queries) DetachServicesFromClient(ctx context.Context, clientID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, detachServicesFromClient, clientID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteClient = `DELETE FROM clients WHERE id = ?`

func (q *Queries) DeleteClient(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteClient, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getClient = `SELECT id, name, phone, address, notes FROM clients WHERE id = ?`

func (q *Queries) GetClient(ctx context.Context, id int64) (ClientRecord, error) {
	var c ClientRecord
	err := q.db.QueryRowContext(ctx, getClient, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Notes)
	return c, err
}

const listClients = `SELECT id, name, phone, address, notes FROM clients ORDER BY name, id`

func (q *Queries) ListClients(ctx context.Context) ([]ClientRecord, error) {
	rows, err := q.db.QueryContext(ctx, listClients)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ClientRecord
	for rows.Next() {
		var c ClientRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Notes); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createService = `INSERT INTO services
    (service_date, service_time, client_id, service_type, amount_cents, status, notes)
    VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateService(ctx context.Context, arg ServiceParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createService,
		arg.ServiceDate, arg.ServiceTime, arg.ClientID, arg.ServiceType, arg.AmountCents, arg.Status, arg.Notes)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getService = `SELECT id, service_date, service_time, client_id, service_type, amount_cents, status, notes
    FROM services WHERE id = ?`

func (q *Queries) GetService(ctx context.Context, id int64) (ServiceRecord, error) {
	var s ServiceRecord
	err := q.db.QueryRowContext(ctx, getService, id).Scan(
		&s.ID, &s.ServiceDate, &s.ServiceTime, &s.ClientID, &s.ServiceType, &s.AmountCents, &s.Status, &s.Notes)
	return s, err
}

const updateService = `UPDATE services SET
    service_date = ?, service_time = ?, client_id = ?, service_type = ?, amount_cents = ?, status = ?, notes = ?
    WHERE id = ?`

func (q *Queries) UpdateService(ctx context.Context, id int64, arg ServiceParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateService,
		arg.ServiceDate, arg.ServiceTime, arg.ClientID, arg.ServiceType, arg.AmountCents, arg.Status, arg.Notes, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteService = `DELETE FROM services WHERE id = ?`

func (q *Queries) DeleteService(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteService, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Services without a time sort before timed services on the same day; id
// breaks the remaining ties.
const listServicesSelect = `SELECT s.id, s.service_date, s.service_time, s.client_id, s.service_type,
    s.amount_cents, s.status, s.notes, c.name, c.phone, c.address
    FROM services s LEFT JOIN clients c ON c.id = s.client_id`

const listServicesOrder = ` ORDER BY s.service_date, s.service_time IS NOT NULL, s.service_time, s.id`

const listServicesInRange = listServicesSelect +
	` WHERE s.service_date >= ? AND s.service_date < ?` + listServicesOrder

const listAllServices = listServicesSelect + listServicesOrder

func (q *Queries) ListServicesInRange(ctx context.Context, start, end string) ([]ServiceWithClientRecord, error) {
	rows, err := q.db.QueryContext(ctx, listServicesInRange, start, end)
	if err != nil {
		return nil, err
	}
	return scanServicesWithClient(rows)
}

func (q *Queries) ListAllServices(ctx context.Context) ([]ServiceWithClientRecord, error) {
	rows, err := q.db.QueryContext(ctx, listAllServices)
	if err != nil {
		return nil, err
	}
	return scanServicesWithClient(rows)
}

func scanServicesWithClient(rows *sql.Rows) ([]ServiceWithClientRecord, error) {
	defer rows.Close()

	var items []ServiceWithClientRecord
	for rows.Next() {
		var r ServiceWithClientRecord
		if err := rows.Scan(
			&r.ID, &r.ServiceDate, &r.ServiceTime, &r.ClientID, &r.ServiceType,
			&r.AmountCents, &r.Status, &r.Notes,
			&r.ClientName, &r.ClientPhone, &r.ClientAddress,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countServicesForClient = `SELECT COUNT(*) FROM services WHERE client_id = ?`

func (q *Queries) CountServicesForClient(ctx context.Context, clientID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countServicesForClient, clientID).Scan(&n)
	return n, err
}
