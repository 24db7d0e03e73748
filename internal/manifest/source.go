// Package manifest provides the concrete table sources: an explicit file
// manifest and a directory listing. Both validate every table before it
// reaches the engine.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"gsradjust/domain/result"
	"gsradjust/internal"
	"gsradjust/internal/schema"
	"gsradjust/internal/tsv"
	"gsradjust/ports"
)

var (
	_ ports.TableSource = (*FileSource)(nil)
	_ ports.TableSource = (*DirectorySource)(nil)
)

// LoadTable reads and validates a single result table from disk.
func LoadTable(path string) (*result.Table, *schema.Report, error) {
	raw, err := tsv.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	table, report, err := schema.NewValidator().Validate(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, report, nil
}

// FileSource is an explicit manifest: one real table path plus the random
// table paths, supplied by the caller.
type FileSource struct {
	RealPath    string
	RandomPaths []string

	Concurrency int
	Log         *internal.Logger
}

// Load reads and validates the manifest's tables. Random tables are loaded
// concurrently since each validation is independent.
func (s *FileSource) Load(ctx context.Context) (*result.Table, []*result.Table, error) {
	logger := s.Log
	if logger == nil {
		logger = internal.DefaultLogger
	}

	real, report, err := LoadTable(s.RealPath)
	if err != nil {
		return nil, nil, fmt.Errorf("real table: %w", err)
	}
	logger.Info("validated real table %s: %d rows, %d pathways", s.RealPath, report.Rows, report.Pathways)

	randoms, err := LoadTables(ctx, s.RandomPaths, s.Concurrency, logger)
	if err != nil {
		return nil, nil, err
	}
	return real, randoms, nil
}

// DirectorySource lists a directory of result tables and classifies each as
// real or random by its run labels. Exactly one real table is expected when
// RequireReal is set.
type DirectorySource struct {
	Dir         string
	RequireReal bool

	Concurrency int
	Log         *internal.Logger
}

// Load validates every .tsv/.txt table under Dir and splits the real table
// from the random pool.
func (s *DirectorySource) Load(ctx context.Context) (*result.Table, []*result.Table, error) {
	logger := s.Log
	if logger == nil {
		logger = internal.DefaultLogger
	}

	paths, err := listTables(s.Dir)
	if err != nil {
		return nil, nil, err
	}
	tables, err := LoadTables(ctx, paths, s.Concurrency, logger)
	if err != nil {
		return nil, nil, err
	}

	var real *result.Table
	var randoms []*result.Table
	for _, t := range tables {
		if isRealTable(t) {
			if real != nil {
				return nil, nil, fmt.Errorf("multiple real tables found under %s", s.Dir)
			}
			real = t
			continue
		}
		randoms = append(randoms, t)
	}
	if s.RequireReal && real == nil {
		return nil, nil, fmt.Errorf("no real table found under %s", s.Dir)
	}

	logger.Info("loaded %d random table(s) from %s", len(randoms), s.Dir)
	return real, randoms, nil
}

// isRealTable reports whether every run label in the table is "real".
func isRealTable(t *result.Table) bool {
	runs := t.RunIDs()
	return len(runs) == 1 && runs[0] == result.RunReal
}

func listTables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list table directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tsv", ".txt":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no result tables (*.tsv, *.txt) under %s", dir)
	}
	return paths, nil
}

// LoadTables reads and validates a set of tables concurrently; each
// validation is independent, so only the group limit bounds parallelism.
func LoadTables(ctx context.Context, paths []string, concurrency int, logger *internal.Logger) ([]*result.Table, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	// Each goroutine writes its own slice slot, so no locking is needed.
	tables := make([]*result.Table, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, report, err := LoadTable(path)
			if err != nil {
				return err
			}
			logger.Debug("validated %s: %d rows, %d run(s)", path, report.Rows, report.Runs)
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}
