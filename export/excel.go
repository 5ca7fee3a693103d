// Package export writes harvested records to a spreadsheet.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/use-agent/termharvest/models"
	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet every new workbook starts with.
const defaultSheet = "Sheet1"

// Excel writes records to an .xlsx workbook.
type Excel struct {
	Path  string
	Sheet string
}

// NewExcel returns an exporter writing sheet into the workbook at path.
func NewExcel(path, sheet string) *Excel {
	return &Excel{Path: path, Sheet: sheet}
}

// Export implements the harvester's exporter.
func (e *Excel) Export(records []models.Record) error {
	return WriteWorkbook(e.Path, e.Sheet, records)
}

// Location returns where Export writes.
func (e *Excel) Location() string {
	return e.Path
}

// ValidateSheetName reports whether name is accepted as a worksheet name
// (at most 31 characters, none of :\/?*[]).
func ValidateSheetName(name string) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(defaultSheet, name); err != nil {
		return fmt.Errorf("export: invalid sheet name %q: %w", name, err)
	}
	return nil
}

// WriteWorkbook creates (or overwrites) the workbook at path with a single
// sheet: a header row followed by one row per record, in order.
func WriteWorkbook(path, sheet string, records []models.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("export: rename sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("export: open stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toRow(models.Columns())); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: cell name for row %d: %w", i+2, err)
		}
		if err := sw.SetRow(cell, toRow(rec.Values())); err != nil {
			return fmt.Errorf("export: write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: create directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
