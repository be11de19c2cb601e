package audit

import (
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Audit"

// ExportXLSX writes entries as a spreadsheet with one row per entry.
func ExportXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	header := []any{"Time (UTC)", "Booking", "Actor", "Action", "From", "To", "Notes", "Entry ID", "Verified"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.BookingID,
			e.ActorID,
			e.Action,
			string(e.PreviousStatus),
			string(e.NewStatus),
			e.Notes,
			e.ID,
			e.Verify(),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}
