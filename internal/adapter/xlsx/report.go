// Package xlsx renders audit reports as Excel workbooks.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

const (
	summarySheet  = "Summary"
	sessionsSheet = "Sessions"
)

var sessionHeaders = []string{
	"Session", "Location", "Status", "Expected", "Found in place", "Found moved",
	"Missing", "Unexpected", "Scans", "Open discrepancies", "Found rate",
}

// WritePlanReport writes a two sheet workbook: plan totals and one row per session.
func WritePlanReport(w io.Writer, r *domain.PlanReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sessionsSheet); err != nil {
		return fmt.Errorf("xlsx: new sheet: %w", err)
	}

	summary := [][2]any{
		{"Plan", r.Plan.Title},
		{"Plan ID", r.Plan.ID.String()},
		{"Status", r.Plan.Status.String()},
		{"Rooms total", r.RoomsTotal},
		{"Rooms done", r.RoomsDone},
		{"Expected items", r.ExpectedTotal},
		{"Found items", r.FoundTotal},
		{"Found rate", r.FoundRate.InexactFloat64()},
		{"Generated at", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05")},
	}
	for i, row := range summary {
		if err := setRow(f, summarySheet, i+1, row[0], row[1]); err != nil {
			return err
		}
	}

	header := make([]any, len(sessionHeaders))
	for i, h := range sessionHeaders {
		header[i] = h
	}
	if err := setRow(f, sessionsSheet, 1, header...); err != nil {
		return err
	}

	for i, s := range r.Sessions {
		err := setRow(f, sessionsSheet, i+2,
			s.SessionID.String(), s.LocationID, s.Status.String(), s.ExpectedCount, s.FoundInPlace,
			s.FoundMoved, s.Missing, s.Unexpected, s.ScanCount, s.OpenDiscrepancies, s.FoundRate.InexactFloat64(),
		)
		if err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sessionsSheet, "A", "A", 38); err != nil {
		return fmt.Errorf("xlsx: column width: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 24); err != nil {
		return fmt.Errorf("xlsx: column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx: %s row %d: %w", sheet, row, err)
	}
	return nil
}
