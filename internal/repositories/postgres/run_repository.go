package postgres

import (
	"context"
	"time"

	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the part of *pgxpool.Pool the repository needs
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ querier = (*pgxpool.Pool)(nil)

type RunRepository struct {
	pool querier
}

func NewRunRepository(pool querier) *RunRepository {
	return &RunRepository{pool: pool}
}

// EnsureSchema creates the runs table if it does not exist yet
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS runs (
            run_id TEXT PRIMARY KEY,
            seed BIGINT NOT NULL,
            robots INTEGER NOT NULL,
            dirty_cells INTEGER NOT NULL,
            width INTEGER NOT NULL,
            height INTEGER NOT NULL,
            torus BOOLEAN NOT NULL,
            max_steps INTEGER NOT NULL,
            steps INTEGER NOT NULL,
            clean_percentage DOUBLE PRECISION NOT NULL,
            total_moves INTEGER NOT NULL,
            stop_reason TEXT NOT NULL,
            elapsed_ms BIGINT NOT NULL,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL
        )`)
	return err
}

func (r *RunRepository) Create(ctx context.Context, run *models.RunSummary) error {
	query := `
        INSERT INTO runs (
            run_id, seed, robots, dirty_cells, width, height, torus,
            max_steps, steps, clean_percentage, total_moves, stop_reason,
            elapsed_ms, started_at, finished_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
        )
    `

	_, err := r.pool.Exec(ctx, query,
		run.RunID,
		run.Seed,
		run.Robots,
		run.DirtyCells,
		run.Width,
		run.Height,
		run.Torus,
		run.MaxSteps,
		run.Steps,
		run.CleanPercentage,
		run.TotalMoves,
		run.StopReason,
		run.Elapsed.Milliseconds(),
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}

func (r *RunRepository) GetAll(ctx context.Context) ([]*models.RunSummary, error) {
	query := `
        SELECT
            run_id, seed, robots, dirty_cells, width, height, torus,
            max_steps, steps, clean_percentage, total_moves, stop_reason,
            elapsed_ms, started_at, finished_at
        FROM runs
        ORDER BY started_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.RunSummary
	for rows.Next() {
		var elapsedMs int64
		run := &models.RunSummary{}
		err := rows.Scan(
			&run.RunID,
			&run.Seed,
			&run.Robots,
			&run.DirtyCells,
			&run.Width,
			&run.Height,
			&run.Torus,
			&run.MaxSteps,
			&run.Steps,
			&run.CleanPercentage,
			&run.TotalMoves,
			&run.StopReason,
			&elapsedMs,
			&run.StartedAt,
			&run.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		run.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *RunRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}

func (r *RunRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "TRUNCATE TABLE runs")
	return err
}
