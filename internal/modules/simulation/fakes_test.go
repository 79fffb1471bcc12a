package simulation

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/domain/repository"
)

type memProjects struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*entity.Project
}

func newMemProjects(projects ...*entity.Project) *memProjects {
	m := &memProjects{projects: make(map[uuid.UUID]*entity.Project)}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

func (m *memProjects) Create(_ context.Context, p *entity.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *memProjects) CreateBatch(ctx context.Context, ps []*entity.Project) (int64, error) {
	for _, p := range ps {
		m.Create(ctx, p)
	}
	return int64(len(ps)), nil
}

func (m *memProjects) GetByID(_ context.Context, id uuid.UUID) (*entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProjects) sortedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m.projects))
	for id := range m.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (m *memProjects) List(_ context.Context, limit, offset int) ([]*entity.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Project
	for _, id := range page(m.sortedIDs(), limit, offset) {
		out = append(out, m.projects[id])
	}
	return out, nil
}

func (m *memProjects) ListIDs(_ context.Context, limit, offset int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return page(m.sortedIDs(), limit, offset), nil
}

func (m *memProjects) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.projects)), nil
}

func (m *memProjects) Update(_ context.Context, p *entity.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return repository.ErrNotFound
	}
	m.projects[p.ID] = p
	return nil
}

func (m *memProjects) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func page(ids []uuid.UUID, limit, offset int) []uuid.UUID {
	if offset >= len(ids) {
		return nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[offset:end]
}

type memRuns struct {
	mu   sync.Mutex
	runs map[uuid.UUID]entity.SimulationRun
}

func newMemRuns() *memRuns {
	return &memRuns{runs: make(map[uuid.UUID]entity.SimulationRun)}
}

func (m *memRuns) Create(_ context.Context, run *entity.SimulationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *memRuns) Finish(ctx context.Context, run *entity.SimulationRun) error {
	return m.Create(ctx, run)
}

func (m *memRuns) GetByID(_ context.Context, id uuid.UUID) (*entity.SimulationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &run, nil
}

func (m *memRuns) ListByProject(_ context.Context, projectID uuid.UUID, limit int) ([]*entity.SimulationRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.SimulationRun
	for _, run := range m.runs {
		if run.ProjectID == projectID && len(out) < limit {
			r := run
			out = append(out, &r)
		}
	}
	return out, nil
}

func (m *memRuns) byStatus(status entity.RunStatus) []entity.SimulationRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.SimulationRun
	for _, run := range m.runs {
		if run.Status == status {
			out = append(out, run)
		}
	}
	return out
}

type memHistory struct {
	mu      sync.Mutex
	entries []*entity.HistoryEntry
	copies  int
	err     error
}

func (m *memHistory) CopyEntries(_ context.Context, entries []*entity.HistoryEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.copies++
	m.entries = append(m.entries, entries...)
	return int64(len(entries)), nil
}

func (m *memHistory) GetByRunID(_ context.Context, runID uuid.UUID) ([]*entity.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.HistoryEntry
	for _, e := range m.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memHistory) countFor(runID uuid.UUID) int {
	entries, _ := m.GetByRunID(context.Background(), runID)
	return len(entries)
}

type memSeries struct {
	mu     sync.Mutex
	series map[uuid.UUID][]*entity.DataSeries
}

func newMemSeries() *memSeries {
	return &memSeries{series: make(map[uuid.UUID][]*entity.DataSeries)}
}

func (m *memSeries) Upsert(_ context.Context, s *entity.DataSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.series[s.ProjectID]
	for i, existing := range list {
		if existing.CellID == s.CellID {
			list[i] = s
			return nil
		}
	}
	m.series[s.ProjectID] = append(list, s)
	return nil
}

func (m *memSeries) UpsertBatch(ctx context.Context, series []*entity.DataSeries) (int64, error) {
	for _, s := range series {
		m.Upsert(ctx, s)
	}
	return int64(len(series)), nil
}

func (m *memSeries) ListByProject(_ context.Context, projectID uuid.UUID) ([]*entity.DataSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.series[projectID], nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.BatchJob
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[uuid.UUID]*entity.BatchJob)}
}

func (m *memJobs) Create(_ context.Context, job *entity.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id uuid.UUID) (*entity.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memJobs) with(id uuid.UUID, fn func(job *entity.BatchJob)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(job)
	return nil
}

func (m *memJobs) UpdateStatus(_ context.Context, id uuid.UUID, status entity.JobStatus, processed, failed int64) error {
	return m.with(id, func(job *entity.BatchJob) {
		job.Status = status
		job.ProcessedRecords = processed
		job.FailedRecords = failed
	})
}

func (m *memJobs) UpdateProgress(_ context.Context, id uuid.UUID, processed, failed int64) error {
	return m.with(id, func(job *entity.BatchJob) {
		job.ProcessedRecords += processed
		job.FailedRecords += failed
	})
}

func (m *memJobs) SetTotal(_ context.Context, id uuid.UUID, total int64) error {
	return m.with(id, func(job *entity.BatchJob) { job.TotalRecords = total })
}

func (m *memJobs) Complete(_ context.Context, id uuid.UUID) error {
	return m.with(id, func(job *entity.BatchJob) { job.Status = entity.JobStatusCompleted })
}

func (m *memJobs) Fail(_ context.Context, id uuid.UUID, errorMsg string) error {
	return m.with(id, func(job *entity.BatchJob) {
		job.Status = entity.JobStatusFailed
		job.ErrorMessage = errorMsg
	})
}

func (m *memJobs) ListRecent(_ context.Context, limit int) ([]*entity.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.BatchJob
	for _, job := range m.jobs {
		if len(out) < limit {
			out = append(out, job)
		}
	}
	return out, nil
}

func (m *memJobs) ListPending(ctx context.Context, limit int) ([]*entity.BatchJob, error) {
	jobs, _ := m.ListRecent(ctx, len(m.jobs))
	var out []*entity.BatchJob
	for _, job := range jobs {
		if job.Status == entity.JobStatusPending && len(out) < limit {
			out = append(out, job)
		}
	}
	return out, nil
}

// fixture wires an engine, pool and handler over in-memory storage
type fixture struct {
	projects *memProjects
	runs     *memRuns
	history  *memHistory
	series   *memSeries
	jobs     *memJobs
	engine   *SimulationEngine
}

func newFixture(projects ...*entity.Project) *fixture {
	f := &fixture{
		projects: newMemProjects(projects...),
		runs:     newMemRuns(),
		history:  &memHistory{},
		series:   newMemSeries(),
		jobs:     newMemJobs(),
	}
	f.engine = NewSimulationEngine(f.projects, f.runs, f.history, f.series)
	return f
}

func (f *fixture) pool(workers, batch int) *WorkerPool {
	return NewWorkerPool(f.engine, f.projects, f.runs, f.history, f.jobs, workers, batch)
}

func counterProject(steps int) *entity.Project {
	return &entity.Project{
		ID:        uuid.New(),
		Name:      "counter",
		StepCount: steps,
		Cells: map[string]string{
			"A1": "=1=A1+1",
			"B1": "=A1+5",
			"C1": "=B1*A1",
		},
	}
}
