package adjust

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gsradjust/domain/core"
)

// AdjustedRecord is one real pathway enriched with its empirical null
// statistics. Never mutated after creation.
type AdjustedRecord struct {
	PathwayID   string  `json:"pathway_id" db:"pathway_id"`
	PathwaySize int     `json:"pathway_size" db:"pathway_size"`
	Stat        float64 `json:"stat" db:"stat"`
	EmpiricalP  float64 `json:"empirical_p" db:"empirical_p"`
	FDR         float64 `json:"fdr" db:"fdr"`
	ZScore      float64 `json:"z_score" db:"z_score"` // NaN when the null has zero variance
	NullMean    float64 `json:"null_mean" db:"null_mean"`
	NullSD      float64 `json:"null_sd" db:"null_sd"`
	NRandomObs  int     `json:"n_random_obs" db:"n_random_obs"`
	ToolName    string  `json:"tool_name" db:"tool_name"`

	// Carried through from the real record when present in the input.
	P           float64 `json:"p,omitempty" db:"p"`
	Effect      float64 `json:"effect,omitempty" db:"effect"`
	SE          float64 `json:"se,omitempty" db:"se"`
	ToolVersion string  `json:"tool_version,omitempty" db:"tool_version"`
	RunID       string  `json:"run_id" db:"run_id"`
}

// HasZScore reports whether the z-score is defined for this pathway.
func (r AdjustedRecord) HasZScore() bool {
	return !math.IsNaN(r.ZScore)
}

// MarshalJSON serializes NaN-sentinel fields as null, since encoding/json
// rejects NaN outright.
func (r AdjustedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PathwayID   string   `json:"pathway_id"`
		PathwaySize int      `json:"pathway_size"`
		Stat        float64  `json:"stat"`
		EmpiricalP  float64  `json:"empirical_p"`
		FDR         float64  `json:"fdr"`
		ZScore      *float64 `json:"z_score"`
		NullMean    float64  `json:"null_mean"`
		NullSD      float64  `json:"null_sd"`
		NRandomObs  int      `json:"n_random_obs"`
		ToolName    string   `json:"tool_name"`
		P           *float64 `json:"p,omitempty"`
		Effect      *float64 `json:"effect,omitempty"`
		SE          *float64 `json:"se,omitempty"`
		ToolVersion string   `json:"tool_version,omitempty"`
		RunID       string   `json:"run_id"`
	}{
		PathwayID:   r.PathwayID,
		PathwaySize: r.PathwaySize,
		Stat:        r.Stat,
		EmpiricalP:  r.EmpiricalP,
		FDR:         r.FDR,
		ZScore:      nanSafe(r.ZScore),
		NullMean:    r.NullMean,
		NullSD:      r.NullSD,
		NRandomObs:  r.NRandomObs,
		ToolName:    r.ToolName,
		P:           nanSafe(r.P),
		Effect:      nanSafe(r.Effect),
		SE:          nanSafe(r.SE),
		ToolVersion: r.ToolVersion,
		RunID:       r.RunID,
	})
}

// Summary holds the informational counters reported after a run.
type Summary struct {
	PathwaysAnalyzed int     `json:"pathways_analyzed"`
	PathwaysDropped  int     `json:"pathways_dropped"`
	RandomRuns       int     `json:"random_runs"`
	NullObservations int     `json:"null_observations"`
	MinEmpiricalP    float64 `json:"min_empirical_p"`
	BelowAlphaRaw    int     `json:"below_alpha_raw"`
	BelowAlphaFDR    int     `json:"below_alpha_fdr"`
	Alpha            float64 `json:"alpha"`
}

// MarshalJSON serializes the NaN min-p (empty run) as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		MinEmpiricalP *float64 `json:"min_empirical_p"`
	}{plain(s), nanSafe(s.MinEmpiricalP)})
}

// nanSafe maps the NaN sentinel to a JSON null.
func nanSafe(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// DiagnosticLevel grades non-fatal conditions.
type DiagnosticLevel string

const (
	LevelWarn DiagnosticLevel = "warn"
	LevelInfo DiagnosticLevel = "info"
)

// DiagnosticCode identifies each recoverable condition from the error
// taxonomy. Per-pathway codes carry the pathway identifier.
type DiagnosticCode string

const (
	CodeInsufficientNullRuns DiagnosticCode = "insufficient_null_runs"
	CodeInsufficientNullObs  DiagnosticCode = "insufficient_null_obs"
	CodePathwayDropped       DiagnosticCode = "pathway_dropped"
	CodeUndefinedZScore      DiagnosticCode = "undefined_z_score"
	CodeMislabeledRow        DiagnosticCode = "mislabeled_row"
)

// Diagnostic is one non-fatal condition observed during adjustment. The
// engine returns these explicitly instead of pushing warnings to a
// process-wide stream, so callers can inspect every condition
// deterministically.
type Diagnostic struct {
	Level     DiagnosticLevel `json:"level"`
	Code      DiagnosticCode  `json:"code"`
	PathwayID string          `json:"pathway_id,omitempty"`
	Message   string          `json:"message"`
}

func (d Diagnostic) String() string {
	if d.PathwayID != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", d.Level, d.Code, d.PathwayID, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Level, d.Code, d.Message)
}

// Result is the full outcome of one adjustment run: records sorted ascending
// by empirical p, the summary counters, and every diagnostic raised.
type Result struct {
	ID          core.ID          `json:"id"`
	ToolName    string           `json:"tool_name"`
	CreatedAt   time.Time        `json:"created_at"`
	Records     []AdjustedRecord `json:"records"`
	Summary     Summary          `json:"summary"`
	Diagnostics []Diagnostic     `json:"diagnostics"`
}

// Warnings returns only the warn-level diagnostics.
func (r *Result) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Level == LevelWarn {
			out = append(out, d)
		}
	}
	return out
}
