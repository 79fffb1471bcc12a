package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/ilramdhan/stepsheet/config"
	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/domain/repository"
	"github.com/ilramdhan/stepsheet/internal/infrastructure/persistence"
	"github.com/ilramdhan/stepsheet/internal/modules/simulation"
	"github.com/ilramdhan/stepsheet/pkg/database"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Printf("Starting worker service with %d workers and batch size %d",
		cfg.Worker.Count, cfg.Worker.BatchSize)

	// Database connection
	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Initialize repositories
	projectRepo := persistence.NewProjectRepository(pool)
	runRepo := persistence.NewSimulationRunRepository(pool)
	historyRepo := persistence.NewRunHistoryRepository(pool)
	seriesRepo := persistence.NewDataSeriesRepository(pool)
	jobRepo := persistence.NewBatchJobRepository(pool)

	engine := simulation.NewSimulationEngine(projectRepo, runRepo, historyRepo, seriesRepo)
	workerPool := simulation.NewWorkerPool(engine, projectRepo, runRepo, historyRepo, jobRepo,
		cfg.Worker.Count, cfg.Worker.BatchSize)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down worker service...")
		cancel()
	}()

	log.Printf("Worker service ready. Polling for jobs every %v", cfg.Worker.PollInterval)

	ticker := time.NewTicker(cfg.Worker.PollInterval)
	defer ticker.Stop()

	for {
		drainPending(ctx, workerPool, jobRepo)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drainPending runs queued jobs oldest first until none are left
func drainPending(ctx context.Context, workerPool *simulation.WorkerPool, jobRepo repository.BatchJobRepository) {
	// a job whose failure could not be recorded stays PENDING; skip it until the next tick
	seen := make(map[uuid.UUID]bool)
	for ctx.Err() == nil {
		jobs, err := jobRepo.ListPending(ctx, 10)
		if err != nil {
			log.Printf("Failed to list pending jobs: %v", err)
			return
		}
		jobs = lo.Filter(jobs, func(job *entity.BatchJob, _ int) bool { return !seen[job.ID] })
		if len(jobs) == 0 {
			return
		}

		for _, job := range jobs {
			seen[job.ID] = true
			if ctx.Err() != nil {
				return
			}
			startTime := time.Now()
			log.Printf("Starting job %s (%s)", job.ID, job.JobType)
			if err := workerPool.RunJob(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
				continue
			}
			log.Printf("Job %s completed in %v", job.ID, time.Since(startTime))
		}
	}
}
