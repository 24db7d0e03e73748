// Command gsradjust computes pathway-specific empirical significance for
// gene-set enrichment results against degree-preserving randomized nulls.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gsradjust/adapters/excel"
	"gsradjust/adapters/postgres"
	domadjust "gsradjust/domain/adjust"
	"gsradjust/domain/result"
	"gsradjust/internal"
	"gsradjust/internal/adjust"
	"gsradjust/internal/api"
	"gsradjust/internal/config"
	"gsradjust/internal/manifest"
	"gsradjust/internal/report"
	"gsradjust/internal/schema"
	"gsradjust/internal/tsv"
)

func main() {
	// Optional .env for local runs; environment always wins.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "gsradjust",
		Short:         "Empirical null-distribution adjustment for gene-set enrichment results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newValidateCmd(),
		newAdjustCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <table.tsv>",
		Short: "Check a result table against the standardized schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := tsv.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, rep, err := schema.NewValidator().Validate(raw)
			if err != nil {
				var schemaErr *schema.Error
				if errors.As(err, &schemaErr) {
					printSchemaFailure(cmd, schemaErr)
				}
				return err
			}
			cmd.Printf("PASS: %d rows, %d pathways, %d run(s)\n", rep.Rows, rep.Pathways, rep.Runs)
			return nil
		},
	}
}

func printSchemaFailure(cmd *cobra.Command, schemaErr *schema.Error) {
	cmd.Println("FAIL")
	for _, col := range schemaErr.Missing {
		cmd.Printf("  missing required column: %s\n", col)
	}
	for _, v := range schemaErr.Violations {
		cmd.Printf("  %s\n", v)
	}
}

func newAdjustCmd() *cobra.Command {
	var (
		realPath   string
		randomDir  string
		randomPath []string
		toolName   string
		outDir     string
		writeXLSX  bool
		writeHTML  bool
		store      bool
	)

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Adjust a real result table against a pool of random tables",
		Long: `Adjust a real result table against a pool of random result tables.

The random pool comes from --random-dir (every *.tsv/*.txt in the directory)
or from repeated --random flags. Output is <tool>.adjusted.tsv in --out, plus
optional Excel and HTML artifacts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := internal.DefaultLogger
			ctx := cmd.Context()

			real, randoms, err := loadInputs(ctx, realPath, randomDir, randomPath, logger)
			if err != nil {
				return err
			}

			eng := adjust.NewEngine(logger)
			eng.Alpha = cfg.Adjustment.Alpha
			eng.MinRandomRuns = cfg.Adjustment.MinRandomRuns
			eng.MinPathwayObs = cfg.Adjustment.MinPathwayObs

			res, err := eng.Adjust(real, randoms, toolName)
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = cfg.Output.Dir
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
			}

			tablePath := filepath.Join(outDir, toolName+".adjusted.tsv")
			if err := tsv.WriteAdjustedFile(tablePath, res, real.Optional); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", tablePath)

			if writeXLSX {
				xlsxPath := filepath.Join(outDir, toolName+".adjusted.xlsx")
				if err := excel.WriteWorkbook(xlsxPath, res); err != nil {
					return err
				}
				cmd.Printf("wrote %s\n", xlsxPath)
			}
			if writeHTML {
				htmlPath := filepath.Join(outDir, toolName+".report.html")
				if err := report.WriteHTMLFile(htmlPath, res); err != nil {
					return err
				}
				cmd.Printf("wrote %s\n", htmlPath)
			}
			if store {
				if cfg.Database.URL == "" {
					return fmt.Errorf("--store requires DATABASE_URL")
				}
				db, err := postgres.Connect(cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := postgres.EnsureSchema(ctx, db); err != nil {
					return err
				}
				if err := postgres.NewRunRepository(db).SaveRun(ctx, res); err != nil {
					return err
				}
				cmd.Printf("stored run %s\n", res.ID)
			}

			printSummary(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&realPath, "real", "", "Path to the real result table (required unless --random-dir holds it)")
	cmd.Flags().StringVar(&randomDir, "random-dir", "", "Directory of random result tables")
	cmd.Flags().StringArrayVar(&randomPath, "random", nil, "Path to one random result table (repeatable)")
	cmd.Flags().StringVar(&toolName, "tool", "tool", "Enrichment tool name, used for output file naming")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default OUTPUT_DIR or .)")
	cmd.Flags().BoolVar(&writeXLSX, "xlsx", false, "Also write an Excel workbook")
	cmd.Flags().BoolVar(&writeHTML, "html-report", false, "Also write an HTML run report")
	cmd.Flags().BoolVar(&store, "store", false, "Persist the run to the configured database")

	return cmd
}

// loadInputs assembles the real table and the random pool from whichever
// combination of flags was given.
func loadInputs(ctx context.Context, realPath, randomDir string, randomPaths []string, logger *internal.Logger) (*result.Table, []*result.Table, error) {
	var real *result.Table
	var randoms []*result.Table

	if randomDir != "" {
		src := &manifest.DirectorySource{Dir: randomDir, RequireReal: realPath == "", Log: logger}
		dirReal, dirRandoms, err := src.Load(ctx)
		if err != nil {
			return nil, nil, err
		}
		real = dirReal
		randoms = dirRandoms
	}
	if len(randomPaths) > 0 {
		tables, err := manifest.LoadTables(ctx, randomPaths, 0, logger)
		if err != nil {
			return nil, nil, err
		}
		randoms = append(randoms, tables...)
	}
	if realPath != "" {
		t, _, err := manifest.LoadTable(realPath)
		if err != nil {
			return nil, nil, fmt.Errorf("real table: %w", err)
		}
		real = t
	}

	if real == nil {
		return nil, nil, fmt.Errorf("no real result table: pass --real or include one in --random-dir")
	}
	return real, randoms, nil
}

func printSummary(cmd *cobra.Command, res *domadjust.Result) {
	s := res.Summary
	cmd.Println("--- adjustment summary ---")
	cmd.Printf("pathways analyzed:   %d\n", s.PathwaysAnalyzed)
	cmd.Printf("pathways dropped:    %d\n", s.PathwaysDropped)
	cmd.Printf("random runs:         %d\n", s.RandomRuns)
	cmd.Printf("null observations:   %d\n", s.NullObservations)
	cmd.Printf("min empirical p:     %s\n", formatMinP(s.MinEmpiricalP))
	cmd.Printf("below %.2g raw/FDR:  %d / %d\n", s.Alpha, s.BelowAlphaRaw, s.BelowAlphaFDR)
	for _, d := range res.Warnings() {
		cmd.Printf("warning: %s\n", d)
	}
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve validation and adjustment over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port == "" {
				port = cfg.Server.Port
			}
			logger := internal.DefaultLogger

			eng := adjust.NewEngine(logger)
			eng.Alpha = cfg.Adjustment.Alpha
			eng.MinRandomRuns = cfg.Adjustment.MinRandomRuns
			eng.MinPathwayObs = cfg.Adjustment.MinPathwayObs

			srv := api.NewServer(eng, logger)
			return srv.ListenAndServe(":" + port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default PORT or 8080)")
	return cmd
}

func formatMinP(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return fmt.Sprintf("%.4g", v)
}
