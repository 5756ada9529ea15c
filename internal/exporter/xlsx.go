package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"cumgpa/pkg/contracts/domain"
)

// SheetName is the worksheet that holds the cumulative GPA rows.
const SheetName = "cumulative_gpa"

// WriteXLSX writes rows to a single-sheet workbook. Null totals are left
// as empty cells.
func WriteXLSX(w io.Writer, rows []domain.CumulativeGPA) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(domain.CumulativeColumns))
	for i, c := range domain.CumulativeColumns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{r.StudentID, cellValue(r.TotCredAtt), cellValue(r.TotCredEarned), cellValue(r.TotGPAPts), cellValue(r.TotGPA)}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	_, err = f.WriteTo(w)
	return err
}

func cellValue(v domain.Null[float64]) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Val
}
