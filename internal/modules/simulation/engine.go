package simulation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/exp/maps"

	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/domain/repository"
	"github.com/ilramdhan/stepsheet/pkg/formula"
)

// ErrInvalidSheet marks input problems (bad cell ids, bad constants) as opposed to storage failures.
var ErrInvalidSheet = errors.New("invalid sheet")

// SimulationEngine evaluates sheets and persists the resulting runs
type SimulationEngine struct {
	projectRepo repository.ProjectRepository
	runRepo     repository.SimulationRunRepository
	historyRepo repository.RunHistoryRepository
	seriesRepo  repository.DataSeriesRepository
	evaluator   *formula.Evaluator
}

// NewSimulationEngine creates a new simulation engine
func NewSimulationEngine(
	projectRepo repository.ProjectRepository,
	runRepo repository.SimulationRunRepository,
	historyRepo repository.RunHistoryRepository,
	seriesRepo repository.DataSeriesRepository,
) *SimulationEngine {
	return &SimulationEngine{
		projectRepo: projectRepo,
		runRepo:     runRepo,
		historyRepo: historyRepo,
		seriesRepo:  seriesRepo,
		evaluator:   formula.DefaultEvaluator,
	}
}

// NormalizeCells upper-cases and validates cell ids. Keys that collide after
// normalization are rejected rather than silently merged.
func NormalizeCells(cells map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(cells))
	for id, text := range cells {
		coords, err := formula.CellIDToCoords(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
		}
		canonical := formula.CellCoordsToID(coords)
		if _, dup := out[canonical]; dup {
			return nil, fmt.Errorf("%w: cell %s is defined twice", ErrInvalidSheet, canonical)
		}
		out[canonical] = text
	}
	return out, nil
}

// Evaluate runs a sheet without touching storage. series supplies data history
// for cells that have no formula of their own.
func (e *SimulationEngine) Evaluate(cells, constants map[string]string, steps int, series map[string][]string) (*formula.Simulation, error) {
	cells, err := NormalizeCells(cells)
	if err != nil {
		return nil, err
	}

	vars, err := formula.ResolveConstants(constants)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSheet, err)
	}

	ids := maps.Keys(cells)
	formula.SortCellIDs(ids)

	sheet := lo.Map(ids, func(id string, _ int) formula.CellFormula {
		return formula.CellFormula{ID: id, Formula: cells[id]}
	})

	return e.evaluator.Simulate(sheet, steps, formula.RunOptions{
		DataHistory: dataHistory(series),
		Variables:   vars,
	}), nil
}

func dataHistory(series map[string][]string) formula.History {
	if len(series) == 0 {
		return nil
	}
	history := formula.NewHistory()
	for id, values := range series {
		coords, err := formula.CellIDToCoords(id)
		if err != nil {
			continue
		}
		key := formula.CellCoordsToID(coords)
		for _, v := range values {
			history.Append(key, formula.ParseLiteral(v))
		}
	}
	return history
}

// RunProject simulates a stored project and persists the run with its full history.
// steps <= 0 falls back to the project's own step count.
func (e *SimulationEngine) RunProject(ctx context.Context, projectID uuid.UUID, steps int) (*entity.SimulationRun, error) {
	run, entries, err := e.prepareRun(ctx, projectID, steps)
	if err != nil {
		return run, err
	}

	if _, err := e.historyRepo.CopyEntries(ctx, entries); err != nil {
		e.failRun(ctx, run, err)
		return run, fmt.Errorf("failed to save run history: %w", err)
	}

	if err := e.runRepo.Finish(ctx, run); err != nil {
		return run, fmt.Errorf("failed to finish run: %w", err)
	}
	return run, nil
}

// prepareRun records a RUNNING run and evaluates it. The returned run already
// carries its final status; the caller is responsible for writing entries and
// calling Finish, which lets the worker pool batch history writes.
func (e *SimulationEngine) prepareRun(ctx context.Context, projectID uuid.UUID, steps int) (*entity.SimulationRun, []*entity.HistoryEntry, error) {
	project, err := e.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get project: %w", err)
	}
	if steps <= 0 {
		steps = project.StepCount
	}

	series, err := e.seriesRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get data series: %w", err)
	}
	seriesByCell := make(map[string][]string, len(series))
	for _, s := range series {
		seriesByCell[s.CellID] = s.Values
	}

	now := time.Now()
	run := &entity.SimulationRun{
		ID:        uuid.New(),
		ProjectID: projectID,
		Steps:     steps,
		Status:    entity.RunStatusRunning,
		StartedAt: &now,
		CreatedAt: now,
	}
	if err := e.runRepo.Create(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}

	sim, err := e.Evaluate(project.Cells, project.Constants, steps, seriesByCell)
	if err != nil {
		e.failRun(ctx, run, err)
		return run, nil, err
	}

	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = entity.RunStatusCompleted
	if len(sim.Blocked) > 0 {
		run.Status = entity.RunStatusDegraded
		run.CycleAt = sim.CycleAt
		run.BlockedCells = sim.Blocked
	}

	return run, HistoryEntries(run.ID, sim), nil
}

func (e *SimulationEngine) failRun(ctx context.Context, run *entity.SimulationRun, cause error) {
	finished := time.Now()
	run.Status = entity.RunStatusFailed
	run.ErrorMessage = cause.Error()
	run.FinishedAt = &finished
	if err := e.runRepo.Finish(ctx, run); err != nil {
		log.Printf("Warning: failed to mark run %s as failed: %v", run.ID, err)
	}
}

// LoadRun returns a stored run with its history entries
func (e *SimulationEngine) LoadRun(ctx context.Context, runID uuid.UUID) (*entity.SimulationRun, []*entity.HistoryEntry, error) {
	run, err := e.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run: %w", err)
	}
	entries, err := e.historyRepo.GetByRunID(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run history: %w", err)
	}
	return run, entries, nil
}

// HistoryEntries flattens a simulation into step-major rows
func HistoryEntries(runID uuid.UUID, sim *formula.Simulation) []*entity.HistoryEntry {
	ids := maps.Keys(sim.History)
	formula.SortCellIDs(ids)

	entries := make([]*entity.HistoryEntry, 0, len(ids)*sim.Steps)
	for step := 0; step < sim.Steps; step++ {
		for _, id := range ids {
			v, ok := sim.History.ValueAtStep(id, step)
			if !ok {
				continue
			}
			entries = append(entries, &entity.HistoryEntry{
				RunID:   runID,
				CellID:  id,
				Step:    step,
				Kind:    v.Kind().String(),
				Display: formula.FormatValue(v),
			})
		}
	}
	return entries
}

// Snapshot groups stored entries back into per-cell display rows, indexed by step
func Snapshot(entries []*entity.HistoryEntry) map[string][]string {
	out := make(map[string][]string)
	for _, e := range entries {
		row := out[e.CellID]
		for len(row) <= e.Step {
			row = append(row, "")
		}
		row[e.Step] = e.Display
		out[e.CellID] = row
	}
	return out
}
