package memory

import (
	"context"
	"sort"
	"sync"

	"agenda/internal/export"
	ports "agenda/internal/sheets"
)

var _ ports.WorkbookWriter = (*Store)(nil)

// Store keeps written tabs in memory, keyed by tab title.
type Store struct {
	mu     sync.Mutex
	prefix string
	tabs   map[string][][]interface{}
	writes int
}

func New(prefix string) *Store {
	return &Store{prefix: prefix, tabs: make(map[string][][]interface{})}
}

// WriteWorkbook replaces the tabs for the workbook's range.
func (s *Store) WriteWorkbook(_ context.Context, wb export.Workbook) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var titles []string
	for _, sh := range wb.Sheets() {
		title := ports.TabTitle(s.prefix, sh.Name, wb.Range)
		rows := make([][]interface{}, len(sh.Rows))
		for i, r := range sh.Rows {
			rows[i] = append([]interface{}(nil), r...)
		}
		s.tabs[title] = rows
		titles = append(titles, title)
	}
	s.writes++
	return titles, nil
}

// Tab returns a copy of the rows written to title.
func (s *Store) Tab(title string) ([][]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[title]
	if !ok {
		return nil, false
	}
	return append([][]interface{}(nil), rows...), true
}

// Titles lists every tab written so far, sorted.
func (s *Store) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tabs))
	for t := range s.tabs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Writes counts WriteWorkbook calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
