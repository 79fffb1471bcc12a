package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ilramdhan/stepsheet/config"
	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/infrastructure/persistence"
	"github.com/ilramdhan/stepsheet/pkg/database"
)

var (
	projectCount = flag.Int("projects", 1000, "Number of demo projects to generate")
	rowCount     = flag.Int("rows", 10, "Rows of cells per project (three cells per row)")
	stepCount    = flag.Int("steps", 24, "Step count stored on each project")
	batchSize    = flag.Int("batch", 500, "Projects per COPY batch")
	workerCount  = flag.Int("workers", 4, "Number of parallel workers")
	enqueue      = flag.Bool("enqueue", false, "Queue a SIMULATE_ALL job once seeding finishes")
)

func main() {
	flag.Parse()
	godotenv.Load()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║            STEPSHEET SIMULATOR - DEMO DATA SEEDER             ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Println()

	log.Printf("Configuration:")
	log.Printf("  Projects:      %d", *projectCount)
	log.Printf("  Rows/Project:  %d", *rowCount)
	log.Printf("  Total Cells:   %d", *projectCount**rowCount*3)
	log.Printf("  Steps:         %d", *stepCount)
	log.Printf("  Batch Size:    %d", *batchSize)
	log.Printf("  Workers:       %d", *workerCount)
	log.Printf("  CPU Cores:     %d", runtime.NumCPU())
	fmt.Println()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	overallStart := time.Now()
	var metrics PerformanceMetrics

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	phaseStart := time.Now()
	metrics.TotalProjects, metrics.TotalSeries = seedProjects(ctx, pool)
	metrics.ProjectTime = time.Since(phaseStart)

	if *enqueue {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		if err := enqueueSimulation(ctx, pool); err != nil {
			log.Fatalf("Failed to queue simulation job: %v", err)
		}
	}

	metrics.TotalTime = time.Since(overallStart)
	printPerformanceSummary(metrics)
}

// PerformanceMetrics holds timing and throughput data
type PerformanceMetrics struct {
	TotalProjects int64
	TotalSeries   int64
	ProjectTime   time.Duration
	TotalTime     time.Duration
}

func printPerformanceSummary(m PerformanceMetrics) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  PERFORMANCE SUMMARY                          ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  %-20s %38v ║\n", "Total Time:", m.TotalTime.Round(time.Millisecond))
	fmt.Printf("║  %-20s %38v ║\n", "Project Data:", m.ProjectTime.Round(time.Millisecond))
	fmt.Println("╠───────────────────────────────────────────────────────────────╣")
	fmt.Printf("║  %-20s %38s ║\n", "Total Projects:", formatNumber(m.TotalProjects))
	fmt.Printf("║  %-20s %38s ║\n", "Total Series:", formatNumber(m.TotalSeries))

	if m.ProjectTime.Seconds() > 0 {
		fmt.Println("╠───────────────────────────────────────────────────────────────╣")
		fmt.Printf("║  %-20s %34.0f /s ║\n", "Project Throughput:", float64(m.TotalProjects)/m.ProjectTime.Seconds())
	}

	fmt.Println("╠───────────────────────────────────────────────────────────────╣")
	fmt.Printf("║  %-20s %35s MB ║\n", "Memory Allocated:", formatNumber(int64(memStats.Alloc/1024/1024)))
	fmt.Printf("║  %-20s %35s MB ║\n", "Total Allocated:", formatNumber(int64(memStats.TotalAlloc/1024/1024)))
	fmt.Printf("║  %-20s %38d ║\n", "GC Cycles:", memStats.NumGC)
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
}

func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	var result []rune
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, r)
	}
	return string(result)
}

// seedProjects fans project generation out to workers; each worker COPYs its
// own batches and upserts the series that belong to them
func seedProjects(ctx context.Context, pool *pgxpool.Pool) (int64, int64) {
	log.Println("Seeding demo projects and data series...")

	projectRepo := persistence.NewProjectRepository(pool)
	seriesRepo := persistence.NewDataSeriesRepository(pool)

	idxChan := make(chan int, *workerCount*2)
	var (
		completedProjects int64
		completedSeries   int64
		wg                sync.WaitGroup
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := atomic.LoadInt64(&completedProjects)
				log.Printf("Progress: projects=%d/%d (%.1f%%)", p, *projectCount, float64(p)/float64(*projectCount)*100)
			}
		}
	}()

	for w := 0; w < *workerCount; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			projects := make([]*entity.Project, 0, *batchSize)
			var series []*entity.DataSeries

			flush := func() {
				if len(projects) == 0 {
					return
				}
				if _, err := projectRepo.CreateBatch(ctx, projects); err != nil {
					log.Printf("Worker %d: failed to insert projects: %v", workerID, err)
				} else {
					atomic.AddInt64(&completedProjects, int64(len(projects)))
					// Series reference projects, so they only go in once the batch landed
					if n, err := seriesRepo.UpsertBatch(ctx, series); err != nil {
						log.Printf("Worker %d: failed to upsert series: %v", workerID, err)
					} else {
						atomic.AddInt64(&completedSeries, n)
					}
				}
				projects = projects[:0]
				series = series[:0]
			}

			for idx := range idxChan {
				project, s := demoProject(idx, *rowCount, *stepCount, time.Now())
				projects = append(projects, project)
				series = append(series, s...)
				if len(projects) >= *batchSize {
					flush()
				}
			}
			flush()
		}(w)
	}

	for i := 0; i < *projectCount; i++ {
		idxChan <- i
	}
	close(idxChan)

	wg.Wait()
	close(done)

	projects, series := atomic.LoadInt64(&completedProjects), atomic.LoadInt64(&completedSeries)
	log.Printf("Completed: %d projects and %d series created", projects, series)
	return projects, series
}

func enqueueSimulation(ctx context.Context, pool *pgxpool.Pool) error {
	jobRepo := persistence.NewBatchJobRepository(pool)
	job := &entity.BatchJob{
		ID:        uuid.New(),
		JobType:   entity.JobTypeSimulateAll,
		Status:    entity.JobStatusPending,
		Metadata:  map[string]interface{}{"steps": 0},
		CreatedAt: time.Now(),
	}
	if err := jobRepo.Create(ctx, job); err != nil {
		return err
	}
	log.Printf("Queued simulation job %s", job.ID)
	return nil
}
