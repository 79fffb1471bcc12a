package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ilramdhan/stepsheet/internal/domain/entity"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ProjectRepository defines the interface for project operations
type ProjectRepository interface {
	// Create creates a new project
	Create(ctx context.Context, project *entity.Project) error
	// CreateBatch creates multiple projects using COPY protocol
	CreateBatch(ctx context.Context, projects []*entity.Project) (int64, error)
	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	// List retrieves projects with pagination
	List(ctx context.Context, limit, offset int) ([]*entity.Project, error)
	// ListIDs retrieves project IDs with pagination (for batch processing)
	ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
	// Count returns the total count of projects
	Count(ctx context.Context) (int64, error)
	// Update updates a project
	Update(ctx context.Context, project *entity.Project) error
	// Delete deletes a project
	Delete(ctx context.Context, id uuid.UUID) error
}

// SimulationRunRepository defines the interface for simulation run operations
type SimulationRunRepository interface {
	// Create records a new run
	Create(ctx context.Context, run *entity.SimulationRun) error
	// Finish stores the final status of a run
	Finish(ctx context.Context, run *entity.SimulationRun) error
	// GetByID retrieves a run by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.SimulationRun, error)
	// ListByProject retrieves the most recent runs of a project
	ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*entity.SimulationRun, error)
}

// RunHistoryRepository defines the interface for per-step run values
type RunHistoryRepository interface {
	// CopyEntries writes history entries using COPY protocol
	CopyEntries(ctx context.Context, entries []*entity.HistoryEntry) (int64, error)
	// GetByRunID retrieves all entries of a run ordered by step then cell
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]*entity.HistoryEntry, error)
}

// DataSeriesRepository defines the interface for imported data history
type DataSeriesRepository interface {
	// Upsert creates or replaces a series
	Upsert(ctx context.Context, series *entity.DataSeries) error
	// UpsertBatch creates or replaces multiple series using COPY protocol
	UpsertBatch(ctx context.Context, series []*entity.DataSeries) (int64, error)
	// ListByProject retrieves every series of a project
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*entity.DataSeries, error)
}

// BatchJobRepository defines the interface for batch job operations
type BatchJobRepository interface {
	// Create creates a new batch job
	Create(ctx context.Context, job *entity.BatchJob) error
	// GetByID retrieves a job by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.BatchJob, error)
	// UpdateStatus updates a job's status and progress
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus, processed, failed int64) error
	// UpdateProgress updates a job's progress atomically
	UpdateProgress(ctx context.Context, id uuid.UUID, processed, failed int64) error
	// SetTotal records how many items a job will process
	SetTotal(ctx context.Context, id uuid.UUID, total int64) error
	// Complete marks a job as completed
	Complete(ctx context.Context, id uuid.UUID) error
	// Fail marks a job as failed
	Fail(ctx context.Context, id uuid.UUID, errorMsg string) error
	// ListRecent retrieves recent jobs
	ListRecent(ctx context.Context, limit int) ([]*entity.BatchJob, error)
	// ListPending retrieves the oldest pending jobs
	ListPending(ctx context.Context, limit int) ([]*entity.BatchJob, error)
}
