package tsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gsradjust/domain/adjust"
	"gsradjust/domain/result"
)

// adjustedColumns is the fixed leading column order of the adjustment output.
var adjustedColumns = []string{
	result.ColPathwayID,
	result.ColPathwaySize,
	result.ColStat,
	"empirical_p",
	"fdr",
	"z_score",
	"null_mean",
	"null_sd",
	"n_random_obs",
	result.ColToolName,
}

// carriedColumns are the optional input columns appended, in this order, when
// the real table carried them. run_id is required input so it is always
// appended last.
var carriedColumns = []string{result.ColP, result.ColEffect, result.ColSE, result.ColToolVersion}

// WriteAdjusted emits an adjustment result as a tab-delimited table in the
// exact wire-format column order.
func WriteAdjusted(w io.Writer, res *adjust.Result, optional []string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	carried := presentCarried(optional)

	header := append([]string{}, adjustedColumns...)
	header = append(header, carried...)
	header = append(header, result.ColRunID)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range res.Records {
		row := []string{
			rec.PathwayID,
			strconv.Itoa(rec.PathwaySize),
			formatFloat(rec.Stat),
			formatFloat(rec.EmpiricalP),
			formatFloat(rec.FDR),
			formatFloat(rec.ZScore),
			formatFloat(rec.NullMean),
			formatFloat(rec.NullSD),
			strconv.Itoa(rec.NRandomObs),
			rec.ToolName,
		}
		for _, col := range carried {
			switch col {
			case result.ColP:
				row = append(row, formatFloat(rec.P))
			case result.ColEffect:
				row = append(row, formatFloat(rec.Effect))
			case result.ColSE:
				row = append(row, formatFloat(rec.SE))
			case result.ColToolVersion:
				row = append(row, rec.ToolVersion)
			}
		}
		row = append(row, rec.RunID)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", rec.PathwayID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteAdjustedFile writes the adjustment output table to disk.
func WriteAdjustedFile(path string, res *adjust.Result, optional []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output table %s: %w", path, err)
	}
	defer f.Close()
	return WriteAdjusted(f, res, optional)
}

// presentCarried filters the carried column order down to what the real
// table actually had.
func presentCarried(optional []string) []string {
	present := make(map[string]bool, len(optional))
	for _, c := range optional {
		present[c] = true
	}
	var out []string
	for _, c := range carriedColumns {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
