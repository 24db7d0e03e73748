// Package excel exports adjusted result tables as Excel workbooks for
// downstream spreadsheet review.
package excel

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"gsradjust/domain/adjust"
)

const sheetName = "adjusted"

var headers = []string{
	"pathway_id", "pathway_size", "stat", "empirical_p", "fdr",
	"z_score", "null_mean", "null_sd", "n_random_obs", "tool_name",
}

// WriteWorkbook writes one adjustment result as a single-sheet workbook, rows
// in the engine's empirical-p order.
func WriteWorkbook(path string, res *adjust.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s: %w", h, err)
		}
	}

	for i, rec := range res.Records {
		row := i + 2
		values := []interface{}{
			rec.PathwayID, rec.PathwaySize, rec.Stat, rec.EmpiricalP, rec.FDR,
			cellFloat(rec.ZScore), rec.NullMean, rec.NullSD, rec.NRandomObs, rec.ToolName,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// cellFloat keeps undefined z-scores readable in the sheet.
func cellFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return "NA"
	}
	return v
}
