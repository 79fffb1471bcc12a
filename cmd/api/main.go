package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/ilramdhan/stepsheet/config"
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
	ctx := context.Background()

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

	// Batch jobs are only queued here; cmd/worker picks them up
	engine := simulation.NewSimulationEngine(projectRepo, runRepo, historyRepo, seriesRepo)
	handler := simulation.NewHandler(engine, projectRepo, runRepo, seriesRepo, jobRepo, cfg.Simulation)

	app := fiber.New(fiber.Config{
		AppName:      "Stepsheet Simulation API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	// Liveness plus database reachability; /api/v1/health stays storage-free
	app.Get("/health", func(c *fiber.Ctx) error {
		db := database.Status(c.UserContext(), pool)
		code, status := 200, "healthy"
		if !db.Healthy {
			code, status = 503, "degraded"
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"database":  db,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	handler.RegisterRoutes(app.Group("/api/v1"))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	log.Printf("Starting API server on :%s (default steps %d, max %d)",
		cfg.App.Port, cfg.Simulation.DefaultSteps, cfg.Simulation.MaxSteps)
	if err := app.Listen(":" + cfg.App.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
