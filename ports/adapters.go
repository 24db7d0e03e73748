// Package ports declares the boundary interfaces of the adjustment core.
// Enrichment tools, the degree-preserving randomization generator, and job
// orchestration all live behind these contracts.
package ports

import (
	"context"

	"gsradjust/domain/result"
)

// AdapterConfig carries tool-specific settings opaque to the core.
type AdapterConfig map[string]string

// EnrichmentAdapter wraps one external enrichment tool. One invocation
// produces exactly one result table in the standardized wire format at
// outputPath.
type EnrichmentAdapter interface {
	// Run executes the tool against a gene-set file for one run label
	// ("real" or "random<k>").
	Run(ctx context.Context, geneSetPath, runID string, cfg AdapterConfig, outputPath string) error

	// ToolName identifies the wrapped tool for output labeling.
	ToolName() string
}

// RandomizationGenerator produces n permuted gene-set files that preserve
// per-pathway size and per-gene membership degree. The algorithm itself is
// external to this system.
type RandomizationGenerator interface {
	Generate(ctx context.Context, gmtPath, outputDir string, n int) (paths []string, err error)
}

// TableSource hands the engine a complete, already-gathered pool of validated
// tables. It replaces file-glob discovery so the core stays decoupled from
// storage layout.
type TableSource interface {
	Load(ctx context.Context) (real *result.Table, randoms []*result.Table, err error)
}
