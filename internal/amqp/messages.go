package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"agenda/internal/core"
)

// ExportRequestMessage asks the worker to write a date range to Google
// Sheets. Empty bounds mean every service. The worker reads the data from
// the database when it handles the message, so requests are idempotent.
type ExportRequestMessage struct {
	Start       string    `json:"start,omitempty"`
	End         string    `json:"end,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewExportRequestMessage creates a request for rng.
func NewExportRequestMessage(rng core.DateRange) *ExportRequestMessage {
	msg := &ExportRequestMessage{RequestedAt: time.Now()}
	if rng.Bounded() {
		msg.Start = rng.Start.String()
		msg.End = rng.End.String()
	}
	return msg
}

// Range parses the requested bounds.
func (m *ExportRequestMessage) Range() (core.DateRange, error) {
	if m.Start == "" && m.End == "" {
		return core.DateRange{}, nil
	}
	start, err := core.ParseDate(m.Start)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("start: %w", err)
	}
	end, err := core.ParseDate(m.End)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("end: %w", err)
	}
	return core.DateRange{Start: start, End: end}, nil
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON creates a message from JSON bytes
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
