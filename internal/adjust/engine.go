// Package adjust implements the empirical null-distribution adjustment
// engine. For each real pathway it compares the observed enrichment
// statistic against the statistics of the same pathway across many
// degree-preserving randomized runs, yielding an empirical p-value, a
// z-score against the null moments, and a Benjamini-Hochberg FDR.
package adjust

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gsradjust/domain/adjust"
	"gsradjust/domain/core"
	"gsradjust/domain/result"
	"gsradjust/internal"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Default thresholds for the non-fatal precision warnings.
const (
	DefaultMinRandomRuns = 100
	DefaultMinPathwayObs = 10
	DefaultAlpha         = 0.05
)

// Engine computes per-pathway empirical significance. It is a pure batch
// computation: one call, one fully materialized pool of random tables, no
// internal shared state.
type Engine struct {
	MinRandomRuns int     // warn below this many distinct random runs
	MinPathwayObs int     // warn below this many null observations per pathway
	Alpha         float64 // threshold for the informational below-alpha counters

	log *internal.Logger
}

// NewEngine creates an engine with the conventional thresholds.
func NewEngine(logger *internal.Logger) *Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{
		MinRandomRuns: DefaultMinRandomRuns,
		MinPathwayObs: DefaultMinPathwayObs,
		Alpha:         DefaultAlpha,
		log:           logger,
	}
}

// nullPool maps pathway_id to the ordered stat values collected across every
// random run, with missing stats already dropped.
type nullPool struct {
	stats map[string][]float64
	runs  map[string]bool
	total int
}

// Adjust runs the full adjustment: pool the random tables, compute the
// empirical statistics for every real pathway, sort ascending by empirical p
// and apply the BH correction. toolName only labels the output.
func (e *Engine) Adjust(real *result.Table, randoms []*result.Table, toolName string) (*adjust.Result, error) {
	if real == nil {
		return nil, fmt.Errorf("real result table is required")
	}

	var diags []adjust.Diagnostic

	pool := buildNullPool(randoms)
	if pool.total == 0 {
		return nil, core.ErrNoNullData
	}
	if len(pool.runs) < e.MinRandomRuns {
		d := adjust.Diagnostic{
			Level: adjust.LevelWarn,
			Code:  adjust.CodeInsufficientNullRuns,
			Message: fmt.Sprintf("only %d distinct random runs (recommended >= %d); empirical p-values are low-precision",
				len(pool.runs), e.MinRandomRuns),
		}
		diags = append(diags, d)
		e.log.Warn("%s", d.Message)
	}

	records := make([]adjust.AdjustedRecord, 0, len(real.Records))
	dropped := 0
	for _, rec := range real.Records {
		if !rec.IsReal() {
			d := adjust.Diagnostic{
				Level:     adjust.LevelWarn,
				Code:      adjust.CodeMislabeledRow,
				PathwayID: rec.PathwayID,
				Message:   fmt.Sprintf("row labeled %q in the real table; skipped", rec.RunID),
			}
			diags = append(diags, d)
			e.log.Warn("%s", d.Message)
			continue
		}
		if !rec.HasStat() {
			dropped++
			d := adjust.Diagnostic{
				Level:     adjust.LevelWarn,
				Code:      adjust.CodePathwayDropped,
				PathwayID: rec.PathwayID,
				Message:   "real stat is missing; pathway excluded from output",
			}
			diags = append(diags, d)
			e.log.Warn("pathway %s: %s", rec.PathwayID, d.Message)
			continue
		}

		null := pool.stats[rec.PathwayID]
		if len(null) == 0 {
			dropped++
			d := adjust.Diagnostic{
				Level:     adjust.LevelWarn,
				Code:      adjust.CodePathwayDropped,
				PathwayID: rec.PathwayID,
				Message:   "no null observations in any random run; pathway excluded from output",
			}
			diags = append(diags, d)
			e.log.Warn("pathway %s: %s", rec.PathwayID, d.Message)
			continue
		}
		if len(null) < e.MinPathwayObs {
			d := adjust.Diagnostic{
				Level:     adjust.LevelWarn,
				Code:      adjust.CodeInsufficientNullObs,
				PathwayID: rec.PathwayID,
				Message:   fmt.Sprintf("only %d null observations (recommended >= %d)", len(null), e.MinPathwayObs),
			}
			diags = append(diags, d)
		}

		ar := e.adjustOne(rec, null, toolName)
		if math.IsNaN(ar.ZScore) {
			diags = append(diags, adjust.Diagnostic{
				Level:     adjust.LevelWarn,
				Code:      adjust.CodeUndefinedZScore,
				PathwayID: rec.PathwayID,
				Message:   "zero-variance null distribution; z_score left unset",
			})
		}
		records = append(records, ar)
	}

	// Stable sort keeps the original row order between tied p-values.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].EmpiricalP < records[j].EmpiricalP
	})

	pvec := make([]float64, len(records))
	for i, r := range records {
		pvec[i] = r.EmpiricalP
	}
	for i, q := range BenjaminiHochberg(pvec) {
		records[i].FDR = q
	}

	res := &adjust.Result{
		ID:          core.NewID(),
		ToolName:    toolName,
		CreatedAt:   time.Now().UTC(),
		Records:     records,
		Summary:     e.summarize(records, pool, dropped),
		Diagnostics: diags,
	}
	e.log.Info("adjusted %d pathways against %d random runs (%d null observations)",
		len(records), len(pool.runs), pool.total)
	return res, nil
}

// adjustOne computes the empirical statistics for a single pathway against
// its null sequence.
func (e *Engine) adjustOne(rec result.Record, null []float64, toolName string) adjust.AdjustedRecord {
	k := len(null)

	// Ties count in the real statistic's favor: the inclusive >= keeps the
	// estimate conservative when coarse-grained tools produce equal stats.
	c := 0
	for _, x := range null {
		if x >= rec.Stat {
			c++
		}
	}
	empiricalP := float64(1+c) / float64(k+1)

	nullMean := stat.Mean(null, nil)
	nullSD := stat.StdDev(null, nil) // unbiased, N-1 divisor
	if k == 1 {
		nullSD = 0
	}

	z := math.NaN()
	if nullSD > 0 {
		z = (rec.Stat - nullMean) / nullSD
	}

	return adjust.AdjustedRecord{
		PathwayID:   rec.PathwayID,
		PathwaySize: rec.PathwaySize,
		Stat:        rec.Stat,
		EmpiricalP:  empiricalP,
		ZScore:      z,
		NullMean:    nullMean,
		NullSD:      nullSD,
		NRandomObs:  k,
		ToolName:    toolName,
		P:           rec.P,
		Effect:      rec.Effect,
		SE:          rec.SE,
		ToolVersion: rec.ToolVersion,
		RunID:       rec.RunID,
	}
}

func (e *Engine) summarize(records []adjust.AdjustedRecord, pool *nullPool, dropped int) adjust.Summary {
	s := adjust.Summary{
		PathwaysAnalyzed: len(records),
		PathwaysDropped:  dropped,
		RandomRuns:       len(pool.runs),
		NullObservations: pool.total,
		MinEmpiricalP:    math.NaN(),
		Alpha:            e.Alpha,
	}
	if len(records) == 0 {
		return s
	}

	pvec := make([]float64, len(records))
	for i, r := range records {
		pvec[i] = r.EmpiricalP
		if r.EmpiricalP < e.Alpha {
			s.BelowAlphaRaw++
		}
		if r.FDR < e.Alpha {
			s.BelowAlphaFDR++
		}
	}
	if minP, err := stats.Min(pvec); err == nil {
		s.MinEmpiricalP = minP
	}
	return s
}

// buildNullPool merges the random tables into one pool keyed by pathway.
// Rows labeled "real" inside the pool are excluded, not errored, and missing
// stats are ignored.
func buildNullPool(randoms []*result.Table) *nullPool {
	pool := &nullPool{
		stats: make(map[string][]float64),
		runs:  make(map[string]bool),
	}
	for _, t := range randoms {
		if t == nil {
			continue
		}
		for _, rec := range t.Records {
			if rec.IsReal() || !rec.HasStat() {
				continue
			}
			pool.stats[rec.PathwayID] = append(pool.stats[rec.PathwayID], rec.Stat)
			pool.runs[rec.RunID] = true
			pool.total++
		}
	}
	return pool
}
