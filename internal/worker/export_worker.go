package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agenda/internal/amqp"
	"agenda/internal/core"
	"agenda/internal/export"
	"agenda/internal/sheets"
)

// ExportWorker handles export requests by reading the agenda database and
// writing the resulting workbook to Google Sheets.
type ExportWorker struct {
	source export.Source
	writer sheets.WorkbookWriter
}

func NewExportWorker(source export.Source, writer sheets.WorkbookWriter) *ExportWorker {
	return &ExportWorker{source: source, writer: writer}
}

// HandleExportRequest processes a single export request from AMQP.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	rng, err := msg.Range()
	if err != nil {
		return fmt.Errorf("%w: invalid export range: %v", amqp.ErrPermanent, err)
	}

	slog.InfoContext(ctx, "Processing export request",
		"range", rng.String(),
		"requested_at", msg.RequestedAt)

	return w.Export(ctx, rng)
}

// Export writes rng to the remote spreadsheet.
func (w *ExportWorker) Export(ctx context.Context, rng core.DateRange) error {
	start := time.Now()

	wb, err := export.BuildWorkbook(ctx, w.source, rng)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}

	tabs, err := w.writer.WriteWorkbook(ctx, wb)
	if err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported agenda",
		"range", rng.String(),
		"tabs", tabs,
		"services", len(wb.Services),
		"clients", len(wb.Clients),
		"duration", time.Since(start))
	return nil
}
