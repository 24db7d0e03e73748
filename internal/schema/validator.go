// Package schema is the gatekeeper in front of the adjustment engine: every
// result table is checked against the standardized contract exactly once,
// with every violation accumulated and reported together.
package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gsradjust/domain/core"
	"gsradjust/domain/result"
	"gsradjust/internal/tsv"
)

// Violation is one concrete contract breach found during validation.
type Violation struct {
	Column  string `json:"column"`
	Row     int    `json:"row,omitempty"`   // 1-based data row, 0 when table-wide
	Count   int    `json:"count,omitempty"` // occurrences for aggregated violations
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Row > 0 {
		return fmt.Sprintf("row %d, column %q: %s", v.Row, v.Column, v.Message)
	}
	return fmt.Sprintf("column %q: %s", v.Column, v.Message)
}

// Report summarizes a table that passed validation.
type Report struct {
	Rows     int `json:"rows"`
	Pathways int `json:"pathways"`
	Runs     int `json:"runs"`
}

// Error carries either the missing-column list or the full set of value
// violations for a table. It wraps the matching domain sentinel.
type Error struct {
	Missing    []string
	Violations []Violation
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("%d validation violation(s): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// Unwrap exposes the sentinel for errors.Is checks.
func (e *Error) Unwrap() error {
	if len(e.Missing) > 0 {
		return core.ErrMissingColumns
	}
	return core.ErrValidationFailed
}

// Validator checks raw tables against the standardized result contract.
// Pure: it never mutates or reorders rows.
type Validator struct{}

// NewValidator creates a schema validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a raw table and, on success, returns the typed immutable
// result table plus a row/pathway/run summary. All value checks are
// accumulated; only the required-column check aborts early since nothing else
// is meaningful without the columns.
func (v *Validator) Validate(raw *tsv.RawTable) (*result.Table, *Report, error) {
	if missing := missingRequired(raw); len(missing) > 0 {
		return nil, nil, &Error{Missing: missing}
	}

	var violations []Violation

	idxPathway := raw.Index(result.ColPathwayID)
	idxSize := raw.Index(result.ColPathwaySize)
	idxStat := raw.Index(result.ColStat)
	idxTool := raw.Index(result.ColToolName)
	idxRun := raw.Index(result.ColRunID)

	idxP := raw.Index(result.ColP)
	idxEffect := raw.Index(result.ColEffect)
	idxSE := raw.Index(result.ColSE)
	idxVersion := raw.Index(result.ColToolVersion)
	idxSeed := raw.Index(result.ColSeed)
	idxTimestamp := raw.Index(result.ColTimestamp)

	records := make([]result.Record, 0, len(raw.Rows))
	pairCount := make(map[string]int, len(raw.Rows))
	pathways := make(map[string]bool)
	runs := make(map[string]bool)
	statSeen := false

	for i := range raw.Rows {
		rowNum := i + 1
		rec := result.Record{
			PathwayID: raw.Cell(i, idxPathway),
			ToolName:  raw.Cell(i, idxTool),
			RunID:     raw.Cell(i, idxRun),
			Stat:      math.NaN(),
			P:         math.NaN(),
			Effect:    math.NaN(),
			SE:        math.NaN(),
		}

		if strings.TrimSpace(rec.PathwayID) == "" {
			violations = append(violations, Violation{
				Column: result.ColPathwayID, Row: rowNum,
				Message: "must be a non-empty textual identifier",
			})
		}
		if strings.TrimSpace(rec.ToolName) == "" {
			violations = append(violations, Violation{
				Column: result.ColToolName, Row: rowNum,
				Message: "must be a non-empty textual value",
			})
		}
		if strings.TrimSpace(rec.RunID) == "" {
			violations = append(violations, Violation{
				Column: result.ColRunID, Row: rowNum,
				Message: "must be a non-empty textual value",
			})
		}

		sizeCell := raw.Cell(i, idxSize)
		size, err := strconv.Atoi(strings.TrimSpace(sizeCell))
		if err != nil {
			violations = append(violations, Violation{
				Column: result.ColPathwaySize, Row: rowNum,
				Message: fmt.Sprintf("not numeric: %q", sizeCell),
			})
		} else if size < 1 {
			violations = append(violations, Violation{
				Column: result.ColPathwaySize, Row: rowNum,
				Message: fmt.Sprintf("must be >= 1, got %d", size),
			})
		} else {
			rec.PathwaySize = size
		}

		statCell := raw.Cell(i, idxStat)
		if !tsv.IsMissing(statCell) {
			stat, err := strconv.ParseFloat(strings.TrimSpace(statCell), 64)
			if err != nil {
				violations = append(violations, Violation{
					Column: result.ColStat, Row: rowNum,
					Message: fmt.Sprintf("not numeric: %q", statCell),
				})
			} else {
				rec.Stat = stat
				statSeen = true
			}
		}

		if idxP >= 0 {
			pCell := raw.Cell(i, idxP)
			if !tsv.IsMissing(pCell) {
				p, err := strconv.ParseFloat(strings.TrimSpace(pCell), 64)
				if err != nil {
					violations = append(violations, Violation{
						Column: result.ColP, Row: rowNum,
						Message: fmt.Sprintf("not numeric: %q", pCell),
					})
				} else if p < 0 || p > 1 {
					violations = append(violations, Violation{
						Column: result.ColP, Row: rowNum,
						Message: fmt.Sprintf("outside [0, 1]: %v", p),
					})
				} else {
					rec.P = p
				}
			}
		}
		if idxEffect >= 0 {
			rec.Effect = parseOptionalFloat(raw.Cell(i, idxEffect))
		}
		if idxSE >= 0 {
			rec.SE = parseOptionalFloat(raw.Cell(i, idxSE))
		}
		if idxVersion >= 0 {
			rec.ToolVersion = raw.Cell(i, idxVersion)
		}
		if idxSeed >= 0 {
			rec.Seed = raw.Cell(i, idxSeed)
		}
		if idxTimestamp >= 0 {
			rec.Timestamp = raw.Cell(i, idxTimestamp)
		}

		pairCount[rec.RunID+"\x00"+rec.PathwayID]++
		pathways[rec.PathwayID] = true
		runs[rec.RunID] = true
		records = append(records, rec)
	}

	// Duplicate (run_id, pathway_id) pairs are aggregated with counts, not
	// just flagged on first occurrence.
	dupKeys := make([]string, 0)
	for key, n := range pairCount {
		if n > 1 {
			dupKeys = append(dupKeys, key)
		}
	}
	sort.Strings(dupKeys)
	for _, key := range dupKeys {
		parts := strings.SplitN(key, "\x00", 2)
		violations = append(violations, Violation{
			Column: result.ColPathwayID,
			Count:  pairCount[key],
			Message: fmt.Sprintf("duplicate (run_id=%q, pathway_id=%q) appears %d times",
				parts[0], parts[1], pairCount[key]),
		})
	}

	if len(raw.Rows) > 0 && !statSeen {
		violations = append(violations, Violation{
			Column:  result.ColStat,
			Message: "entirely missing: no numeric stat value in any row",
		})
	}

	if len(violations) > 0 {
		return nil, nil, &Error{Violations: violations}
	}

	table := &result.Table{
		Records:  records,
		Optional: presentOptional(raw),
	}
	report := &Report{
		Rows:     len(records),
		Pathways: len(pathways),
		Runs:     len(runs),
	}
	return table, report, nil
}

func missingRequired(raw *tsv.RawTable) []string {
	var missing []string
	for _, col := range result.RequiredColumns {
		if raw.Index(col) < 0 {
			missing = append(missing, col)
		}
	}
	return missing
}

func presentOptional(raw *tsv.RawTable) []string {
	var out []string
	for _, col := range raw.Columns {
		for _, opt := range result.OptionalColumns {
			if col == opt {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

// parseOptionalFloat is lenient: optional numeric columns other than p carry
// no range contract, and unparseable cells degrade to missing.
func parseOptionalFloat(cell string) float64 {
	if tsv.IsMissing(cell) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
