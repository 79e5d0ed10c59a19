package http

import (
	"context"
	"html/template"
	"net/url"
	"strconv"

	"agenda/internal/core"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string { return m.String() },
		"statusClass": func(s string) string {
			if s == string(core.StatusPaid) {
				return "paid"
			}
			return "pending"
		},
	}
}

type monthNav struct {
	Year, Month         int
	Label               string
	PrevYear, PrevMonth int
	NextYear, NextMonth int
	ThisYear, ThisMonth int
}

func newMonthNav(p MonthParams, today core.Date) monthNav {
	py, pm := shiftMonth(p.Year, p.Month, -1)
	ny, nm := shiftMonth(p.Year, p.Month, 1)
	return monthNav{
		Year:      p.Year,
		Month:     p.Month,
		Label:     monthLabel(p.Year, p.Month),
		PrevYear:  py,
		PrevMonth: pm,
		NextYear:  ny,
		NextMonth: nm,
		ThisYear:  today.Year(),
		ThisMonth: int(today.Month()),
	}
}

type statusOption struct {
	Value   string
	Checked bool
}

type filterView struct {
	Statuses []statusOption
	Client   string
}

func newFilterView(f core.ServiceFilter) filterView {
	v := filterView{Client: f.ClientQuery}
	for _, s := range core.Statuses() {
		v.Statuses = append(v.Statuses, statusOption{
			Value:   string(s),
			Checked: containsStatus(f.Statuses, s),
		})
	}
	return v
}

func containsStatus(list []core.PaymentStatus, s core.PaymentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type dayBar struct {
	Label string
	Count int
	Width int
}

type serviceRowView struct {
	ID            int64
	Date          string
	Time          string
	Client        string
	ClientMissing bool
	Phone         string
	Address       string
	Type          string
	Amount        string
	Status        string
	Notes         string
}

func newServiceRowView(r core.ServiceRow) serviceRowView {
	v := serviceRowView{
		ID:     r.ID,
		Date:   r.Date.Format("Mon 02 Jan"),
		Time:   r.Time.String(),
		Type:   r.Type,
		Amount: r.Amount.String(),
		Status: string(r.Status),
		Notes:  r.Notes,
	}
	switch r.Linked.State {
	case core.LinkActive:
		v.Client = r.Linked.Name
		v.Phone = r.Linked.Phone
		v.Address = r.Linked.Address
	case core.LinkMissing:
		v.Client = "Deleted client"
		v.ClientMissing = true
	}
	return v
}

// agendaPanel is the month table with its summary and per-day chart. The
// summary and chart cover the whole month; filters narrow the table only.
type agendaPanel struct {
	Nav          monthNav
	Filter       filterView
	FilterQuery  template.URL
	PaidTotal    string
	PendingTotal string
	Count        int
	Shown        int
	Days         []dayBar
	Rows         []serviceRowView
}

func newAgendaPanel(ov core.MonthOverview, f core.ServiceFilter, nav monthNav) agendaPanel {
	p := agendaPanel{
		Nav:          nav,
		Filter:       newFilterView(f),
		FilterQuery:  template.URL(filterQuery(f)),
		PaidTotal:    ov.Summary.PaidTotal.String(),
		PendingTotal: ov.Summary.PendingTotal.String(),
		Count:        ov.Summary.Count,
	}

	peak := 0
	for _, d := range ov.Days {
		if d.Count > peak {
			peak = d.Count
		}
	}
	for _, d := range ov.Days {
		p.Days = append(p.Days, dayBar{
			Label: d.Date.Format("02"),
			Count: d.Count,
			Width: barWidth(d.Count, peak),
		})
	}

	for _, r := range f.Apply(ov.Rows) {
		p.Rows = append(p.Rows, newServiceRowView(r))
	}
	p.Shown = len(p.Rows)
	return p
}

// filterQuery encodes f so month navigation keeps the active filters.
func filterQuery(f core.ServiceFilter) string {
	q := url.Values{}
	for _, s := range f.Statuses {
		q.Add("status", string(s))
	}
	if f.ClientQuery != "" {
		q.Set("client", f.ClientQuery)
	}
	return q.Encode()
}

type serviceFormView struct {
	ID      int64
	Date    string
	Time    string
	Client  string
	Type    string
	Amount  string
	Status  string
	Notes   string
	Error   string
	Clients []core.Client

	NewClientName    string
	NewClientPhone   string
	NewClientAddress string
	NewClientNotes   string

	Statuses []string
}

func statusValues() []string {
	out := make([]string, 0, 2)
	for _, s := range core.Statuses() {
		out = append(out, string(s))
	}
	return out
}

func newServiceForm(clients []core.Client, date core.Date) serviceFormView {
	return serviceFormView{
		Date:     date.String(),
		Time:     DefaultServiceTime,
		Type:     DefaultServiceType,
		Status:   string(core.StatusPending),
		Clients:  clients,
		Statuses: statusValues(),
	}
}

func serviceFormFor(s core.Service, clients []core.Client) serviceFormView {
	v := serviceFormView{
		ID:       s.ID,
		Date:     s.Date.String(),
		Time:     s.Time.String(),
		Type:     s.Type,
		Amount:   s.Amount.Decimal(),
		Status:   string(s.Status),
		Notes:    s.Notes,
		Clients:  clients,
		Statuses: statusValues(),
	}
	if id, ok := s.Client.Get(); ok {
		v.Client = strconv.FormatInt(id, 10)
	}
	return v
}

// serviceFormFromRequest echoes the submitted values back after a
// validation error.
func serviceFormFromRequest(id int64, p *RequestBodyParser, clients []core.Client, err error) serviceFormView {
	return serviceFormView{
		ID:               id,
		Date:             p.Get("date"),
		Time:             p.Get("time"),
		Client:           p.Get("client_id"),
		Type:             p.Get("service_type"),
		Amount:           p.Get("amount"),
		Status:           p.Get("status"),
		Notes:            p.Get("notes"),
		NewClientName:    p.Get("new_client_name"),
		NewClientPhone:   p.Get("new_client_phone"),
		NewClientAddress: p.Get("new_client_address"),
		NewClientNotes:   p.Get("new_client_notes"),
		Error:            validationMessage(err),
		Clients:          clients,
		Statuses:         statusValues(),
	}
}

type clientRowView struct {
	core.Client
	Services int64
}

type clientFormView struct {
	ID      int64
	Name    string
	Phone   string
	Address string
	Notes   string
	Error   string
}

func clientFormFor(c core.Client) clientFormView {
	return clientFormView{ID: c.ID, Name: c.Name, Phone: c.Phone, Address: c.Address, Notes: c.Notes}
}

func clientFormFromInput(id int64, in core.ClientInput, err error) clientFormView {
	return clientFormView{
		ID:      id,
		Name:    in.Name,
		Phone:   in.Phone,
		Address: in.Address,
		Notes:   in.Notes,
		Error:   validationMessage(err),
	}
}

type clientsPage struct {
	Rows []clientRowView
	Form clientFormView
}

func (s *Server) clientRows(ctx context.Context) ([]clientRowView, error) {
	clients, err := s.agenda.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]clientRowView, 0, len(clients))
	for _, c := range clients {
		n, err := s.agenda.CountServicesForClient(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, clientRowView{Client: c, Services: n})
	}
	return rows, nil
}
