// Package export turns agenda data into a two-sheet workbook: the services of
// a date range and the client directory.
package export

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"agenda/internal/core"
)

const (
	SheetAgenda  = "Agenda"
	SheetClients = "Clients"

	// FileName is the download name of the local export.
	FileName = "export_agenda.xlsx"
)

var (
	AgendaHeader  = []string{"Date", "Time", "Client", "Phone", "Address", "Service type", "Amount", "Status", "Notes"}
	ClientsHeader = []string{"Client", "Phone", "Address", "Notes"}
)

// Source is what a workbook is built from.
type Source interface {
	ListServices(ctx context.Context, rng core.DateRange) ([]core.ServiceRow, error)
	ListClients(ctx context.Context) ([]core.Client, error)
}

type Workbook struct {
	Range    core.DateRange
	Services []core.ServiceRow
	Clients  []core.Client
}

// Sheet is one tab of the workbook. The first row is the header; cells are
// strings except amounts, which are numbers.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// BuildWorkbook loads the services of rng and every client concurrently.
func BuildWorkbook(ctx context.Context, src Source, rng core.DateRange) (Workbook, error) {
	wb := Workbook{Range: rng}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := src.ListServices(gctx, rng)
		if err != nil {
			return fmt.Errorf("load services: %w", err)
		}
		wb.Services = rows
		return nil
	})
	g.Go(func() error {
		clients, err := src.ListClients(gctx)
		if err != nil {
			return fmt.Errorf("load clients: %w", err)
		}
		wb.Clients = clients
		return nil
	})
	if err := g.Wait(); err != nil {
		return Workbook{}, err
	}
	return wb, nil
}

// Sheets returns the agenda sheet followed by the clients sheet.
func (wb Workbook) Sheets() []Sheet {
	return []Sheet{wb.agendaSheet(), wb.clientsSheet()}
}

func (wb Workbook) agendaSheet() Sheet {
	rows := make([][]interface{}, 0, len(wb.Services)+1)
	rows = append(rows, header(AgendaHeader))
	for _, s := range wb.Services {
		rows = append(rows, []interface{}{
			s.Date.String(),
			s.Time.String(),
			s.ClientName(),
			s.Linked.Phone,
			s.Linked.Address,
			s.Type,
			s.Amount.Float(),
			string(s.Status),
			s.Notes,
		})
	}
	return Sheet{Name: SheetAgenda, Rows: rows}
}

func (wb Workbook) clientsSheet() Sheet {
	rows := make([][]interface{}, 0, len(wb.Clients)+1)
	rows = append(rows, header(ClientsHeader))
	for _, c := range wb.Clients {
		rows = append(rows, []interface{}{c.Name, c.Phone, c.Address, c.Notes})
	}
	return Sheet{Name: SheetClients, Rows: rows}
}

func header(cols []string) []interface{} {
	row := make([]interface{}, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}
