package memory

import (
	"context"
	"testing"

	"agenda/internal/core"
	"agenda/internal/export"
)

func TestStoreWriteWorkbook(t *testing.T) {
	s := New("")
	wb := export.Workbook{
		Range: core.MonthRange(2024, 5),
		Services: []core.ServiceRow{{
			Service: core.Service{ID: 1, Date: core.NewDate(2024, 5, 2), Amount: core.Money{Cents: 500}, Status: core.StatusPaid},
		}},
		Clients: []core.Client{{ID: 1, Name: "Ana"}},
	}

	titles, err := s.WriteWorkbook(context.Background(), wb)
	if err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}
	if len(titles) != 2 || titles[0] != "Agenda 2024-05" || titles[1] != "Clients 2024-05" {
		t.Fatalf("unexpected titles: %v", titles)
	}

	rows, ok := s.Tab("Agenda 2024-05")
	if !ok || len(rows) != 2 {
		t.Fatalf("unexpected agenda tab: ok=%v rows=%v", ok, rows)
	}
	if rows[1][6] != 5.0 {
		t.Errorf("amount cell = %v, want 5", rows[1][6])
	}

	// Rewriting the same range replaces the tab instead of appending.
	wb.Services = nil
	if _, err := s.WriteWorkbook(context.Background(), wb); err != nil {
		t.Fatalf("WriteWorkbook() error = %v", err)
	}
	rows, _ = s.Tab("Agenda 2024-05")
	if len(rows) != 1 {
		t.Errorf("expected header only after rewrite, got %d rows", len(rows))
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d, want 2", s.Writes())
	}
	if got := s.Titles(); len(got) != 2 {
		t.Errorf("Titles() = %v", got)
	}
}
