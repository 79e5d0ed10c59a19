package core

import (
	"errors"
	"testing"
)

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{}).Validate(); !errors.Is(err, ErrMissingDate) {
		t.Fatalf("expected ErrMissingDate, got %v", err)
	}
	if err := NewDate(MaxYear, 12, 31).Validate(); err != nil {
		t.Fatalf("last supported day: expected ok, got %v", err)
	}
	if err := NewDate(MaxYear+1, 1, 1).Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate past MaxYear, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-12-01", "2024-12-01", true},
		{" 2024-02-29 ", "2024-02-29", true},
		{"2024-05-01 00:00:00", "2024-05-01", true},
		{"2023-02-29", "", false},
		{"01/05/2024", "", false},
		{"9998-12-31", "9998-12-31", true},
		{"9999-12-15", "", false},
		{"0000-01-01", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
		ok    bool
	}{
		{"10:00", "10:00", true, true},
		{"7:05", "07:05", true, true},
		{"23:59:30", "23:59", true, true},
		{"", "", false, true},
		{"24:00", "", false, false},
		{"10:60", "", false, false},
		{"ten", "", false, false},
		{"10", "", false, false},
		{"10:00:zz", "", false, false},
		{"10:00:60", "", false, false},
		{"10:00:00:00", "", false, false},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidTime) {
				t.Fatalf("%q expected ErrInvalidTime, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error %v", tc.in, err)
		}
		if got.Valid != tc.valid || got.String() != tc.want {
			t.Fatalf("%q expected %q (valid=%v), got %q (valid=%v)", tc.in, tc.want, tc.valid, got, got.Valid)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]PaymentStatus{
		"":        StatusPending,
		"pending": StatusPending,
		"Paid":    StatusPaid,
		" PAID ":  StatusPaid,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Fatalf("%q expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseStatus("Pagado"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestClientRef(t *testing.T) {
	none := NoClient()
	if _, ok := none.Get(); ok || !none.IsNone() {
		t.Fatalf("NoClient should reference nothing")
	}
	ref := ClientID(7)
	if id, ok := ref.Get(); !ok || id != 7 {
		t.Fatalf("expected client 7, got %d (ok=%v)", id, ok)
	}
	if ref.String() != "client:7" || none.String() != "none" {
		t.Fatalf("unexpected String(): %s / %s", ref, none)
	}
}

func TestClientInputValidate(t *testing.T) {
	if err := (ClientInput{Name: "Ana"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (ClientInput{Name: "   "}).Validate(); !errors.Is(err, ErrEmptyClientName) {
		t.Fatalf("expected ErrEmptyClientName, got %v", err)
	}
	n := ClientInput{Name: " Ana ", Phone: " 555 ", Address: "\tMain St ", Notes: " vip\n"}.Normalize()
	if n.Name != "Ana" || n.Phone != "555" || n.Address != "Main St" || n.Notes != "vip" {
		t.Fatalf("unexpected normalized input %+v", n)
	}
}

func TestServiceInputValidate(t *testing.T) {
	good := ServiceInput{
		Date:   NewDate(2025, 1, 1),
		Time:   At(10, 0),
		Type:   "General fumigation",
		Amount: Money{Cents: 0},
		Status: StatusPending,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		in   ServiceInput
		want error
	}{
		{ServiceInput{Status: StatusPaid}, ErrMissingDate},
		{ServiceInput{Date: NewDate(2025, 1, 1), Time: TimeOfDay{Hour: 25, Valid: true}, Status: StatusPaid}, ErrInvalidTime},
		{ServiceInput{Date: NewDate(2025, 1, 1), Amount: Money{Cents: -1}, Status: StatusPaid}, ErrNegativeAmount},
		{ServiceInput{Date: NewDate(2025, 1, 1), Status: "Unknown"}, ErrInvalidStatus},
	}
	for i, tc := range bads {
		if err := tc.in.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}

	if n := (ServiceInput{Type: " x ", Notes: " y "}).Normalize(); n.Status != StatusPending || n.Type != "x" || n.Notes != "y" {
		t.Fatalf("unexpected normalized input %+v", n)
	}
}
