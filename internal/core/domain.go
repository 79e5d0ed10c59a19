package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	StatusPending PaymentStatus = "Pending"
	StatusPaid    PaymentStatus = "Paid"
)

const (
	LinkNone LinkState = iota
	LinkActive
	LinkMissing
)

const dateLayout = "2006-01-02"

// Dates are stored as fixed-width YYYY-MM-DD text and compared as strings,
// so the exclusive end of a month range must stay within four digits.
const (
	MinYear = 1
	MaxYear = 9998
)

type (
	PaymentStatus string

	// LinkState tells how a service row relates to its client after the join.
	LinkState int

	Date struct {
		time.Time
	}

	// TimeOfDay is an optional wall-clock time stored as "HH:MM".
	TimeOfDay struct {
		Hour   int
		Minute int
		Valid  bool
	}

	Money struct {
		Cents int64
	}

	// ClientRef is the optional reference from a service to a client.
	ClientRef struct {
		id    int64
		valid bool
	}

	Client struct {
		ID      int64
		Name    string
		Phone   string
		Address string
		Notes   string
	}

	ClientInput struct {
		Name    string
		Phone   string
		Address string
		Notes   string
	}

	Service struct {
		ID     int64
		Date   Date
		Time   TimeOfDay
		Client ClientRef
		Type   string
		Amount Money
		Status PaymentStatus
		Notes  string
	}

	ServiceInput struct {
		Date   Date
		Time   TimeOfDay
		Client ClientRef
		Type   string
		Amount Money
		Status PaymentStatus
		Notes  string
	}

	// LinkedClient carries the denormalized client columns of a joined row.
	LinkedClient struct {
		State   LinkState
		Name    string
		Phone   string
		Address string
	}

	// ServiceRow is a service joined with its client's contact fields.
	ServiceRow struct {
		Service
		Linked LinkedClient
	}
)

var (
	ErrEmptyClientName = errors.New("client name is required")
	ErrMissingDate     = errors.New("service date is required")
	ErrInvalidTime     = errors.New("invalid service time")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrInvalidStatus   = errors.New("invalid payment status")
	ErrInvalidDate     = errors.New("invalid date")
)

// NoClient returns a reference to no client.
func NoClient() ClientRef { return ClientRef{} }

// ClientID returns a reference to the client with the given id.
func ClientID(id int64) ClientRef { return ClientRef{id: id, valid: true} }

// Get returns the referenced id and whether a client is referenced at all.
func (r ClientRef) Get() (int64, bool) { return r.id, r.valid }

func (r ClientRef) IsNone() bool { return !r.valid }

func (r ClientRef) String() string {
	if !r.valid {
		return "none"
	}
	return fmt.Sprintf("client:%d", r.id)
}

// ParseStatus accepts the canonical labels case-insensitively. Empty input
// yields StatusPending.
func ParseStatus(s string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return StatusPending, nil
	case "paid":
		return StatusPaid, nil
	}
	return "", ErrInvalidStatus
}

func (s PaymentStatus) Validate() error {
	switch s {
	case StatusPending, StatusPaid:
		return nil
	}
	return ErrInvalidStatus
}

func (s PaymentStatus) String() string { return string(s) }

// Statuses lists every payment status in display order.
func Statuses() []PaymentStatus {
	return []PaymentStatus{StatusPending, StatusPaid}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Trailing time components such as
// "2024-05-01 00:00:00" are tolerated.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d := Date{Time: t}
	if err := d.Validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	if y := d.Year(); y < MinYear || y > MaxYear {
		return fmt.Errorf("%w: year %d outside %d-%d", ErrInvalidDate, y, MinYear, MaxYear)
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS"; seconds are checked and
// then dropped. Empty input is a valid absent time.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeOfDay{}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, ErrInvalidTime
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, ErrInvalidTime
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, ErrInvalidTime
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return TimeOfDay{}, ErrInvalidTime
		}
	}
	t := TimeOfDay{Hour: h, Minute: m, Valid: true}
	if err := t.Validate(); err != nil {
		return TimeOfDay{}, err
	}
	return t, nil
}

func At(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, Valid: true}
}

func (t TimeOfDay) Validate() error {
	if !t.Valid {
		return nil
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return ErrInvalidTime
	}
	return nil
}

func (t TimeOfDay) String() string {
	if !t.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Normalize trims every field.
func (in ClientInput) Normalize() ClientInput {
	return ClientInput{
		Name:    strings.TrimSpace(in.Name),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
		Notes:   strings.TrimSpace(in.Notes),
	}
}

func (in ClientInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyClientName
	}
	return nil
}

// Normalize trims free text and defaults the status to Pending.
func (in ServiceInput) Normalize() ServiceInput {
	in.Type = strings.TrimSpace(in.Type)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Status == "" {
		in.Status = StatusPending
	}
	return in
}

func (in ServiceInput) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if err := in.Time.Validate(); err != nil {
		return err
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if err := in.Status.Validate(); err != nil {
		return err
	}
	return nil
}

// Input returns the mutable fields of the service.
func (s Service) Input() ServiceInput {
	return ServiceInput{
		Date:   s.Date,
		Time:   s.Time,
		Client: s.Client,
		Type:   s.Type,
		Amount: s.Amount,
		Status: s.Status,
		Notes:  s.Notes,
	}
}

// Input returns the mutable fields of the client.
func (c Client) Input() ClientInput {
	return ClientInput{Name: c.Name, Phone: c.Phone, Address: c.Address, Notes: c.Notes}
}

// ClientName returns the joined client name, or empty when there is none.
func (r ServiceRow) ClientName() string {
	if r.Linked.State != LinkActive {
		return ""
	}
	return r.Linked.Name
}
