package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"gsradjust/domain/adjust"
	"gsradjust/domain/core"
)

func fixtureResult() *adjust.Result {
	return &adjust.Result{
		ID:        core.NewID(),
		ToolName:  "magma",
		CreatedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		Records: []adjust.AdjustedRecord{
			{PathwayID: "GO:1", PathwaySize: 12, Stat: 2.5, EmpiricalP: 0.01,
				FDR: 0.02, ZScore: 1.5, NullMean: 1.0, NullSD: 1.0,
				NRandomObs: 99, ToolName: "magma", RunID: "real"},
			{PathwayID: "GO:2", PathwaySize: 5, Stat: 1.0, EmpiricalP: 0.5,
				FDR: 0.5, ZScore: math.NaN(), NullMean: 1.0, NullSD: 0.0,
				NRandomObs: 99, ToolName: "magma", RunID: "real"},
		},
		Summary: adjust.Summary{
			PathwaysAnalyzed: 2, RandomRuns: 99, NullObservations: 198,
			MinEmpiricalP: 0.01, BelowAlphaRaw: 1, BelowAlphaFDR: 1, Alpha: 0.05,
		},
		Diagnostics: []adjust.Diagnostic{
			{Level: adjust.LevelWarn, Code: adjust.CodeInsufficientNullRuns,
				Message: "only 99 distinct random runs"},
		},
	}
}

func TestMarkdown_ContainsSummaryAndWarnings(t *testing.T) {
	md := Markdown(fixtureResult())

	for _, want := range []string{
		"Pathways analyzed: 2",
		"Distinct random runs: 99",
		"GO:1",
		"only 99 distinct random runs",
		"## Warnings",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	// Undefined z-score rendered as NA, never NaN.
	if strings.Contains(md, "NaN") {
		t.Error("markdown leaked a NaN")
	}
}

func TestHTML_RendersTable(t *testing.T) {
	out := string(HTML(fixtureResult()))
	if !strings.Contains(out, "<table>") {
		t.Error("expected an HTML table in the rendered report")
	}
	if !strings.Contains(out, "GO:1") {
		t.Error("expected pathway rows in the rendered report")
	}
}
