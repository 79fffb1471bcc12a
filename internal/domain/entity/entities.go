package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Project is a stored sheet: a set of cell formulas plus the named constants they may use.
type Project struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	StepCount   int               `json:"step_count"`
	Cells       map[string]string `json:"cells"`               // cell id -> raw text, as JSONB
	Constants   map[string]string `json:"constants,omitempty"` // name -> expression, as JSONB
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CellsJSON returns cells as JSON bytes
func (p *Project) CellsJSON() ([]byte, error) {
	if p.Cells == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Cells)
}

// ConstantsJSON returns constants as JSON bytes
func (p *Project) ConstantsJSON() ([]byte, error) {
	if p.Constants == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Constants)
}

// RunStatus represents the status of a simulation run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusDegraded  RunStatus = "DEGRADED" // finished, but some cells sat in a dependency cycle
	RunStatusFailed    RunStatus = "FAILED"
)

// SimulationRun records one evaluation of a project over a number of steps.
type SimulationRun struct {
	ID           uuid.UUID  `json:"id"`
	ProjectID    uuid.UUID  `json:"project_id"`
	Steps        int        `json:"steps"`
	Status       RunStatus  `json:"status"`
	CycleAt      string     `json:"cycle_at,omitempty"`
	BlockedCells []string   `json:"blocked_cells,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HistoryEntry is one cell's value at one step of a run, flattened for COPY.
type HistoryEntry struct {
	RunID   uuid.UUID `json:"run_id"`
	CellID  string    `json:"cell_id"`
	Step    int       `json:"step"`
	Kind    string    `json:"kind"`
	Display string    `json:"display"`
}

// DataSeries is an imported per-step series for a cell, used as data history.
type DataSeries struct {
	ProjectID uuid.UUID `json:"project_id"`
	CellID    string    `json:"cell_id"`
	Values    []string  `json:"values"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValuesJSON returns values as JSON bytes
func (d *DataSeries) ValuesJSON() ([]byte, error) {
	if d.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Values)
}

// JobStatus represents the status of a batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// JobType represents the type of batch job
type JobType string

const (
	JobTypeSimulateAll     JobType = "SIMULATE_ALL"
	JobTypeSimulateProject JobType = "SIMULATE_PROJECT"
)

// BatchJob represents a background job for large operations
type BatchJob struct {
	ID               uuid.UUID              `json:"id"`
	JobType          JobType                `json:"job_type"`
	Status           JobStatus              `json:"status"`
	TotalRecords     int64                  `json:"total_records"`
	ProcessedRecords int64                  `json:"processed_records"`
	FailedRecords    int64                  `json:"failed_records"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	FinishedAt       *time.Time             `json:"finished_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// Progress returns the progress percentage
func (b *BatchJob) Progress() float64 {
	if b.TotalRecords == 0 {
		return 0
	}
	return float64(b.ProcessedRecords) / float64(b.TotalRecords) * 100
}

// MetadataInt reads an integer field from Metadata. JSON round-trips turn
// numbers into float64, so both representations are accepted.
func (b *BatchJob) MetadataInt(key string) (int, bool) {
	switch v := b.Metadata[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// MetadataString reads a string field from Metadata.
func (b *BatchJob) MetadataString(key string) (string, bool) {
	v, ok := b.Metadata[key].(string)
	return v, ok
}
