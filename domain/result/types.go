package result

import (
	"math"
	"strconv"
	"strings"
)

// Column names of the standardized result-table wire format. Every adapter,
// the validator, and the writer agree on these exact strings.
const (
	ColPathwayID   = "pathway_id"
	ColPathwaySize = "pathway_size"
	ColStat        = "stat"
	ColToolName    = "tool_name"
	ColRunID       = "run_id"

	ColP           = "p"
	ColEffect      = "effect"
	ColSE          = "se"
	ColToolVersion = "tool_version"
	ColSeed        = "seed"
	ColTimestamp   = "timestamp"
)

// RunReal is the run label of the single non-randomized table.
const RunReal = "real"

// RequiredColumns must all be present in any table entering the engine.
var RequiredColumns = []string{ColPathwayID, ColPathwaySize, ColStat, ColToolName, ColRunID}

// OptionalColumns are recognized but not required; anything else in a header
// is ignored.
var OptionalColumns = []string{ColP, ColEffect, ColSE, ColToolVersion, ColSeed, ColTimestamp}

// Record is one row of a result table. Absent numeric values are NaN.
type Record struct {
	PathwayID   string
	PathwaySize int
	Stat        float64
	ToolName    string
	RunID       string

	P           float64
	Effect      float64
	SE          float64
	ToolVersion string
	Seed        string
	Timestamp   string
}

// HasStat reports whether the enrichment statistic is present.
func (r Record) HasStat() bool {
	return !math.IsNaN(r.Stat)
}

// IsReal reports whether the record belongs to the real (non-randomized) run.
func (r Record) IsReal() bool {
	return r.RunID == RunReal
}

// Table is an ordered collection of records sharing one run label, immutable
// after validation.
type Table struct {
	Records  []Record
	Optional []string // optional columns actually present, in header order
}

// HasOptional reports whether the named optional column was present.
func (t *Table) HasOptional(col string) bool {
	for _, c := range t.Optional {
		if c == col {
			return true
		}
	}
	return false
}

// RunIDs returns the distinct run labels in first-seen order.
func (t *Table) RunIDs() []string {
	seen := make(map[string]bool, 1)
	var runs []string
	for _, r := range t.Records {
		if !seen[r.RunID] {
			seen[r.RunID] = true
			runs = append(runs, r.RunID)
		}
	}
	return runs
}

// PathwayIDs returns the distinct pathway identifiers in first-seen order.
func (t *Table) PathwayIDs() []string {
	seen := make(map[string]bool, len(t.Records))
	var ids []string
	for _, r := range t.Records {
		if !seen[r.PathwayID] {
			seen[r.PathwayID] = true
			ids = append(ids, r.PathwayID)
		}
	}
	return ids
}

// ParseRandomIndex extracts k from a "random<k>" run label. ok is false for
// the real run or any label that does not follow the convention.
func ParseRandomIndex(runID string) (int, bool) {
	if !strings.HasPrefix(runID, "random") {
		return 0, false
	}
	k, err := strconv.Atoi(strings.TrimPrefix(runID, "random"))
	if err != nil || k < 1 {
		return 0, false
	}
	return k, true
}
