// Package postgres persists completed adjustment runs behind
// ports.RunRepository.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gsradjust/domain/adjust"
	"gsradjust/domain/core"
	"gsradjust/ports"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// Connect opens the run database from a connection URL.
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to run database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the run tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS adjustment_runs (
			id                 UUID PRIMARY KEY,
			tool_name          TEXT NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL,
			pathways_analyzed  INT NOT NULL,
			pathways_dropped   INT NOT NULL,
			random_runs        INT NOT NULL,
			null_observations  INT NOT NULL,
			min_empirical_p    DOUBLE PRECISION,
			below_alpha_raw    INT NOT NULL,
			below_alpha_fdr    INT NOT NULL,
			alpha              DOUBLE PRECISION NOT NULL
		);
		CREATE TABLE IF NOT EXISTS adjusted_pathways (
			run_id        UUID NOT NULL REFERENCES adjustment_runs(id) ON DELETE CASCADE,
			pathway_id    TEXT NOT NULL,
			pathway_size  INT NOT NULL,
			stat          DOUBLE PRECISION NOT NULL,
			empirical_p   DOUBLE PRECISION NOT NULL,
			fdr           DOUBLE PRECISION NOT NULL,
			z_score       DOUBLE PRECISION,
			null_mean     DOUBLE PRECISION NOT NULL,
			null_sd       DOUBLE PRECISION NOT NULL,
			n_random_obs  INT NOT NULL,
			tool_name     TEXT NOT NULL,
			PRIMARY KEY (run_id, pathway_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure run schema: %w", err)
	}
	return nil
}

// SaveRun stores the summary row and every adjusted pathway in one
// transaction.
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, res *adjust.Result) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin run transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO adjustment_runs (
			id, tool_name, created_at, pathways_analyzed, pathways_dropped,
			random_runs, null_observations, min_empirical_p,
			below_alpha_raw, below_alpha_fdr, alpha
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, res.ID.String(), res.ToolName, res.CreatedAt,
		res.Summary.PathwaysAnalyzed, res.Summary.PathwaysDropped,
		res.Summary.RandomRuns, res.Summary.NullObservations,
		nullFloat(res.Summary.MinEmpiricalP),
		res.Summary.BelowAlphaRaw, res.Summary.BelowAlphaFDR, res.Summary.Alpha)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", res.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO adjusted_pathways (
			run_id, pathway_id, pathway_size, stat, empirical_p, fdr,
			z_score, null_mean, null_sd, n_random_obs, tool_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare pathway insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range res.Records {
		_, err = stmt.ExecContext(ctx,
			res.ID.String(), rec.PathwayID, rec.PathwaySize, rec.Stat,
			rec.EmpiricalP, rec.FDR, nullFloat(rec.ZScore),
			rec.NullMean, rec.NullSD, rec.NRandomObs, rec.ToolName)
		if err != nil {
			return fmt.Errorf("failed to insert pathway %s: %w", rec.PathwayID, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run with its adjusted pathways, sorted ascending by
// empirical p as emitted.
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.ID) (*adjust.Result, error) {
	res := &adjust.Result{ID: id}
	row := r.db.QueryRowxContext(ctx, `
		SELECT tool_name, created_at, pathways_analyzed, pathways_dropped,
		       random_runs, null_observations, min_empirical_p,
		       below_alpha_raw, below_alpha_fdr, alpha
		FROM adjustment_runs WHERE id = $1
	`, id.String())

	var minP sql.NullFloat64
	err := row.Scan(&res.ToolName, &res.CreatedAt,
		&res.Summary.PathwaysAnalyzed, &res.Summary.PathwaysDropped,
		&res.Summary.RandomRuns, &res.Summary.NullObservations, &minP,
		&res.Summary.BelowAlphaRaw, &res.Summary.BelowAlphaFDR, &res.Summary.Alpha)
	if err == sql.ErrNoRows {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	res.Summary.MinEmpiricalP = floatOrNaN(minP)

	rows, err := r.db.QueryxContext(ctx, `
		SELECT pathway_id, pathway_size, stat, empirical_p, fdr,
		       z_score, null_mean, null_sd, n_random_obs, tool_name
		FROM adjusted_pathways WHERE run_id = $1
		ORDER BY empirical_p ASC
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load pathways for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec adjust.AdjustedRecord
		var z sql.NullFloat64
		if err := rows.Scan(&rec.PathwayID, &rec.PathwaySize, &rec.Stat,
			&rec.EmpiricalP, &rec.FDR, &z, &rec.NullMean, &rec.NullSD,
			&rec.NRandomObs, &rec.ToolName); err != nil {
			return nil, fmt.Errorf("failed to scan pathway row: %w", err)
		}
		rec.ZScore = floatOrNaN(z)
		res.Records = append(res.Records, rec)
	}
	return res, rows.Err()
}

// ListRecentRuns returns run summaries (no pathway rows), newest first.
func (r *RunRepositoryImpl) ListRecentRuns(ctx context.Context, limit int) ([]*adjust.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, tool_name, created_at, pathways_analyzed, pathways_dropped,
		       random_runs, null_observations, min_empirical_p,
		       below_alpha_raw, below_alpha_fdr, alpha
		FROM adjustment_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []*adjust.Result
	for rows.Next() {
		res := &adjust.Result{}
		var id string
		var minP sql.NullFloat64
		if err := rows.Scan(&id, &res.ToolName, &res.CreatedAt,
			&res.Summary.PathwaysAnalyzed, &res.Summary.PathwaysDropped,
			&res.Summary.RandomRuns, &res.Summary.NullObservations, &minP,
			&res.Summary.BelowAlphaRaw, &res.Summary.BelowAlphaFDR,
			&res.Summary.Alpha); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		res.ID = core.ID(id)
		res.Summary.MinEmpiricalP = floatOrNaN(minP)
		out = append(out, res)
	}
	return out, rows.Err()
}

// nullFloat maps the NaN sentinel to SQL NULL for the nullable columns.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
