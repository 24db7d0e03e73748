// Package report renders run artifacts: a markdown summary of an adjustment
// run and its HTML rendering.
package report

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gsradjust/domain/adjust"
)

// topPathways caps the table in the report; the full output lives in the TSV.
const topPathways = 25

// Markdown builds the run report as markdown text.
func Markdown(res *adjust.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Empirical adjustment report: %s\n\n", res.ToolName)
	fmt.Fprintf(&b, "Run `%s`, completed %s.\n\n", res.ID, res.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	s := res.Summary
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Pathways analyzed: %d\n", s.PathwaysAnalyzed)
	fmt.Fprintf(&b, "- Pathways dropped (no usable null): %d\n", s.PathwaysDropped)
	fmt.Fprintf(&b, "- Distinct random runs: %d\n", s.RandomRuns)
	fmt.Fprintf(&b, "- Null observations pooled: %d\n", s.NullObservations)
	fmt.Fprintf(&b, "- Minimum empirical p: %s\n", formatP(s.MinEmpiricalP))
	fmt.Fprintf(&b, "- Below %.2g (raw / FDR): %d / %d\n\n", s.Alpha, s.BelowAlphaRaw, s.BelowAlphaFDR)

	if len(res.Records) > 0 {
		b.WriteString("## Top pathways\n\n")
		b.WriteString("| pathway_id | size | stat | empirical_p | fdr | z_score |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		n := len(res.Records)
		if n > topPathways {
			n = topPathways
		}
		for _, r := range res.Records[:n] {
			fmt.Fprintf(&b, "| %s | %d | %.4g | %s | %s | %s |\n",
				r.PathwayID, r.PathwaySize, r.Stat,
				formatP(r.EmpiricalP), formatP(r.FDR), formatZ(r.ZScore))
		}
		b.WriteString("\n")
	}

	if warns := res.Warnings(); len(warns) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, d := range warns {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML renders the markdown report to a standalone HTML fragment.
func HTML(res *adjust.Result) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(Markdown(res)))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

// WriteHTMLFile writes the HTML rendering of the run report to disk.
func WriteHTMLFile(path string, res *adjust.Result) error {
	if err := os.WriteFile(path, HTML(res), 0644); err != nil {
		return fmt.Errorf("failed to write HTML report %s: %w", path, err)
	}
	return nil
}

func formatP(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return fmt.Sprintf("%.4g", v)
}

func formatZ(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return fmt.Sprintf("%.3f", v)
}
