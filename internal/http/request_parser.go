// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// month and range selection, service and client forms, and id path values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agenda/internal/core"
)

// maxFormBytes bounds request bodies read by RequestBodyParser.
const maxFormBytes = 64 << 10

const (
	// clientNew selects the inline new-client fields of the service form.
	clientNew = "new"

	// DefaultServiceType and DefaultServiceTime prefill a new service form.
	DefaultServiceType = "General fumigation"
	DefaultServiceTime = "10:00"
)

var (
	errInvalidClientID = errors.New("invalid client selection")
	errInvalidID       = errors.New("invalid id")
	errInvalidRange    = errors.New("invalid date range")

	// ErrBodyTooLarge is returned when a request body exceeds maxFormBytes.
	ErrBodyTooLarge = errors.New("request body too large")
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// Range returns the half-open range covering the month.
func (p MonthParams) Range() core.DateRange {
	return core.MonthRange(p.Year, p.Month)
}

// ParseMonthParams extracts year and month from query parameters, using the
// month of now as default. Out-of-range months fall back to the default.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y >= core.MinYear && y <= core.MaxYear {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}

	return params
}

// ParseRangeParams selects the export range: explicit start/end dates, every
// service with all=1, or the month given by year/month.
func ParseRangeParams(query url.Values, now time.Time) (core.DateRange, error) {
	start := strings.TrimSpace(query.Get("start"))
	end := strings.TrimSpace(query.Get("end"))
	if start != "" || end != "" {
		s, err := core.ParseDate(start)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("%w: start: %v", errInvalidRange, err)
		}
		e, err := core.ParseDate(end)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("%w: end: %v", errInvalidRange, err)
		}
		if !s.Before(e.Time) {
			return core.DateRange{}, fmt.Errorf("%w: start must be before end", errInvalidRange)
		}
		return core.DateRange{Start: s, End: e}, nil
	}
	if all, _ := strconv.ParseBool(query.Get("all")); all {
		return core.DateRange{}, nil
	}
	return ParseMonthParams(query, now).Range(), nil
}

// ParseFilter reads the agenda filters: repeated status values and a client
// name query.
func ParseFilter(query url.Values) (core.ServiceFilter, error) {
	var f core.ServiceFilter
	for _, v := range query["status"] {
		if strings.TrimSpace(v) == "" {
			continue
		}
		s, err := core.ParseStatus(v)
		if err != nil {
			return core.ServiceFilter{}, err
		}
		f.Statuses = append(f.Statuses, s)
	}
	f.ClientQuery = sanitizeInput(query.Get("client"))
	return f, nil
}

// ParseID reads a positive int64 path value.
func ParseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, r.PathValue(name))
	}
	return id, nil
}

// ServiceForm is the decoded service form, including the optional inline
// new client.
type ServiceForm struct {
	Input     core.ServiceInput
	NewClient *core.ClientInput
}

// ParseServiceForm decodes and type-checks the service form. Field-level
// validation is left to the agenda.
func ParseServiceForm(p *RequestBodyParser) (ServiceForm, error) {
	var form ServiceForm
	var err error

	if v := p.Get("date"); v != "" {
		if form.Input.Date, err = core.ParseDate(v); err != nil {
			return form, err
		}
	}
	if form.Input.Time, err = core.ParseTimeOfDay(p.Get("time")); err != nil {
		return form, err
	}
	cents, err := core.ParseAmountToCents(p.Get("amount"))
	if err != nil {
		return form, err
	}
	form.Input.Amount = core.Money{Cents: cents}
	if form.Input.Status, err = core.ParseStatus(p.Get("status")); err != nil {
		return form, err
	}
	form.Input.Type = p.Get("service_type")
	form.Input.Notes = p.Get("notes")

	switch v := p.Get("client_id"); v {
	case "":
		form.Input.Client = core.NoClient()
	case clientNew:
		form.NewClient = &core.ClientInput{
			Name:    p.Get("new_client_name"),
			Phone:   p.Get("new_client_phone"),
			Address: p.Get("new_client_address"),
			Notes:   p.Get("new_client_notes"),
		}
	default:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return form, fmt.Errorf("%w: %q", errInvalidClientID, v)
		}
		form.Input.Client = core.ClientID(id)
	}
	return form, nil
}

// ParseClientForm decodes the client form.
func ParseClientForm(p *RequestBodyParser) core.ClientInput {
	return core.ClientInput{
		Name:    p.Get("name"),
		Phone:   p.Get("phone"),
		Address: p.Get("address"),
		Notes:   p.Get("notes"),
	}
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxFormBytes+1))
		if p.err == nil && len(p.body) > maxFormBytes {
			p.body = nil
			p.err = ErrBodyTooLarge
		}
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseBodyOrFail parses the request body and returns an error response on
// failure. Returns the parser and nil on success.
func ParseBodyOrFail(r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			return nil, ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return nil, BadRequestError("Malformed request body")
	}
	return p, nil
}
