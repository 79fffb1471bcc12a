package simulation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/domain/repository"
)

// WorkerPool re-simulates projects concurrently
type WorkerPool struct {
	engine      *SimulationEngine
	projectRepo repository.ProjectRepository
	runRepo     repository.SimulationRunRepository
	historyRepo repository.RunHistoryRepository
	jobRepo     repository.BatchJobRepository
	workerCount int
	batchSize   int
}

// NewWorkerPool creates a new worker pool. batchSize counts history entries
// buffered before a COPY, not projects.
func NewWorkerPool(
	engine *SimulationEngine,
	projectRepo repository.ProjectRepository,
	runRepo repository.SimulationRunRepository,
	historyRepo repository.RunHistoryRepository,
	jobRepo repository.BatchJobRepository,
	workerCount, batchSize int,
) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &WorkerPool{
		engine:      engine,
		projectRepo: projectRepo,
		runRepo:     runRepo,
		historyRepo: historyRepo,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		batchSize:   batchSize,
	}
}

type preparedRun struct {
	run     *entity.SimulationRun
	entries []*entity.HistoryEntry
}

// RunJob executes a queued job according to its type
func (wp *WorkerPool) RunJob(ctx context.Context, job *entity.BatchJob) error {
	steps, _ := job.MetadataInt("steps")

	var err error
	switch job.JobType {
	case entity.JobTypeSimulateAll:
		err = wp.RunAll(ctx, job.ID, steps)
	case entity.JobTypeSimulateProject:
		err = wp.runSingle(ctx, job, steps)
	default:
		err = fmt.Errorf("unsupported job type %q", job.JobType)
	}

	if err != nil {
		if failErr := wp.jobRepo.Fail(ctx, job.ID, err.Error()); failErr != nil {
			log.Printf("Failed to mark job %s as failed: %v", job.ID, failErr)
		}
	}
	return err
}

func (wp *WorkerPool) runSingle(ctx context.Context, job *entity.BatchJob, steps int) error {
	raw, _ := job.MetadataString("project_id")
	projectID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid project_id in job metadata: %w", err)
	}

	wp.jobRepo.UpdateStatus(ctx, job.ID, entity.JobStatusRunning, 0, 0)
	wp.jobRepo.SetTotal(ctx, job.ID, 1)

	if _, err := wp.engine.RunProject(ctx, projectID, steps); err != nil {
		return err
	}

	wp.jobRepo.UpdateProgress(ctx, job.ID, 1, 0)
	if err := wp.jobRepo.Complete(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// RunAll re-simulates every project. steps <= 0 uses each project's own step count.
func (wp *WorkerPool) RunAll(ctx context.Context, jobID uuid.UUID, steps int) error {
	totalCount, err := wp.projectRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count projects: %w", err)
	}

	wp.jobRepo.UpdateStatus(ctx, jobID, entity.JobStatusRunning, 0, 0)
	wp.jobRepo.SetTotal(ctx, jobID, totalCount)

	idChan := make(chan uuid.UUID, wp.workerCount*2)
	resultChan := make(chan preparedRun, wp.workerCount*2)
	errChan := make(chan error, 1)

	var processedCount int64
	var failedCount int64

	var wg sync.WaitGroup
	for i := 0; i < wp.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for projectID := range idChan {
				run, entries, err := wp.engine.prepareRun(ctx, projectID, steps)
				if err != nil {
					log.Printf("Worker %d: failed to simulate project %s: %v", workerID, projectID, err)
					atomic.AddInt64(&failedCount, 1)
					continue
				}
				resultChan <- preparedRun{run: run, entries: entries}
			}
		}(i)
	}

	// Collector: history rows are buffered across projects and written with one COPY
	var resultWg sync.WaitGroup
	resultWg.Add(1)
	go func() {
		defer resultWg.Done()
		var pending []preparedRun
		var buffer []*entity.HistoryEntry

		flush := func() {
			if len(pending) == 0 {
				return
			}
			if _, err := wp.historyRepo.CopyEntries(ctx, buffer); err != nil {
				log.Printf("Failed to copy history batch: %v", err)
				for _, p := range pending {
					wp.engine.failRun(ctx, p.run, err)
				}
				atomic.AddInt64(&failedCount, int64(len(pending)))
			} else {
				for _, p := range pending {
					if err := wp.runRepo.Finish(ctx, p.run); err != nil {
						log.Printf("Failed to finish run %s: %v", p.run.ID, err)
					}
				}
				atomic.AddInt64(&processedCount, int64(len(pending)))
				wp.jobRepo.UpdateProgress(ctx, jobID, int64(len(pending)), 0)
			}
			pending = pending[:0]
			buffer = buffer[:0]
		}

		for result := range resultChan {
			pending = append(pending, result)
			buffer = append(buffer, result.entries...)
			if len(buffer) >= wp.batchSize {
				flush()
			}
		}
		flush()
	}()

	// Dispatcher: page through project ids and feed the workers
	go func() {
		defer close(idChan)
		offset := 0
		for {
			ids, err := wp.projectRepo.ListIDs(ctx, 500, offset)
			if err != nil {
				errChan <- fmt.Errorf("failed to list project IDs: %w", err)
				return
			}
			if len(ids) == 0 {
				return
			}
			for _, id := range ids {
				select {
				case <-ctx.Done():
					return
				case idChan <- id:
				}
			}
			offset += len(ids)
		}
	}()

	wg.Wait()
	close(resultChan)
	resultWg.Wait()

	select {
	case err := <-errChan:
		return err
	default:
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("simulation cancelled: %w", err)
	}

	processed := atomic.LoadInt64(&processedCount)
	failed := atomic.LoadInt64(&failedCount)
	wp.jobRepo.UpdateStatus(ctx, jobID, entity.JobStatusRunning, processed, failed)
	if err := wp.jobRepo.Complete(ctx, jobID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	log.Printf("Simulation complete: processed=%d, failed=%d, total=%d", processed, failed, totalCount)
	return nil
}
