package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/domain/repository"
)

const runColumns = `id, project_id, steps, status, cycle_at, blocked_cells, error_message, started_at, finished_at, created_at`

// simulationRunRepo implements repository.SimulationRunRepository
type simulationRunRepo struct {
	pool *pgxpool.Pool
}

// NewSimulationRunRepository creates a new simulation run repository
func NewSimulationRunRepository(pool *pgxpool.Pool) repository.SimulationRunRepository {
	return &simulationRunRepo{pool: pool}
}

func (r *simulationRunRepo) Create(ctx context.Context, run *entity.SimulationRun) error {
	query := `
		INSERT INTO simulation_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID, run.ProjectID, run.Steps, run.Status, run.CycleAt, blockedCells(run), run.ErrorMessage, run.StartedAt, run.FinishedAt, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (r *simulationRunRepo) Finish(ctx context.Context, run *entity.SimulationRun) error {
	query := `
		UPDATE simulation_runs SET status = $2, cycle_at = $3, blocked_cells = $4, error_message = $5, finished_at = $6
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, run.ID, run.Status, run.CycleAt, blockedCells(run), run.ErrorMessage, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

func (r *simulationRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.SimulationRun, error) {
	query := `SELECT ` + runColumns + ` FROM simulation_runs WHERE id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (r *simulationRunRepo) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*entity.SimulationRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM simulation_runs WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*entity.SimulationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func blockedCells(run *entity.SimulationRun) []string {
	if run.BlockedCells == nil {
		return []string{}
	}
	return run.BlockedCells
}

func scanRun(row pgx.Row) (*entity.SimulationRun, error) {
	var run entity.SimulationRun
	err := row.Scan(&run.ID, &run.ProjectID, &run.Steps, &run.Status, &run.CycleAt, &run.BlockedCells,
		&run.ErrorMessage, &run.StartedAt, &run.FinishedAt, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// runHistoryRepo implements repository.RunHistoryRepository
type runHistoryRepo struct {
	pool *pgxpool.Pool
}

// NewRunHistoryRepository creates a new run history repository
func NewRunHistoryRepository(pool *pgxpool.Pool) repository.RunHistoryRepository {
	return &runHistoryRepo{pool: pool}
}

// CopyEntries uses PostgreSQL COPY protocol; a run produces cells x steps rows
func (r *runHistoryRepo) CopyEntries(ctx context.Context, entries []*entity.HistoryEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	columns := []string{"run_id", "cell_id", "step", "kind", "display"}
	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = []interface{}{e.RunID, e.CellID, e.Step, e.Kind, e.Display}
	}

	copyCount, err := r.pool.CopyFrom(ctx, pgx.Identifier{"run_history"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy run history: %w", err)
	}
	return copyCount, nil
}

func (r *runHistoryRepo) GetByRunID(ctx context.Context, runID uuid.UUID) ([]*entity.HistoryEntry, error) {
	query := `
		SELECT run_id, cell_id, step, kind, display
		FROM run_history WHERE run_id = $1
		ORDER BY step, cell_id
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.HistoryEntry
	for rows.Next() {
		var e entity.HistoryEntry
		if err := rows.Scan(&e.RunID, &e.CellID, &e.Step, &e.Kind, &e.Display); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
