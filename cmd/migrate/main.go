package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/ilramdhan/stepsheet/config"
	"github.com/ilramdhan/stepsheet/pkg/database"
)

func main() {
	godotenv.Load()

	upCmd := flag.NewFlagSet("up", flag.ExitOnError)
	upDir := upCmd.String("dir", "migrations", "Directory holding *.up.sql files")
	downCmd := flag.NewFlagSet("down", flag.ExitOnError)
	downDir := downCmd.String("dir", "migrations", "Directory holding *.down.sql files")
	downSteps := downCmd.Int("n", 1, "Number of migrations to roll back")
	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)
	statusDir := statusCmd.String("dir", "migrations", "Directory holding *.up.sql files")

	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command> [-dir migrations]")
		fmt.Println("Commands: up, down [-n 1], status")
		os.Exit(1)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	ensureMigrationsTable(ctx, pool)

	switch os.Args[1] {
	case "up":
		upCmd.Parse(os.Args[2:])
		runMigrationsUp(ctx, pool, *upDir)
	case "down":
		downCmd.Parse(os.Args[2:])
		runMigrationsDown(ctx, pool, *downDir, *downSteps)
	case "status":
		statusCmd.Parse(os.Args[2:])
		showMigrationStatus(ctx, pool, *statusDir)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Fatalf("Failed to create migrations table: %v", err)
	}
}

// migrationFiles lists files of one direction ordered by version
func migrationFiles(dir, direction string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*."+direction+".sql"))
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		return extractVersion(files[i]) < extractVersion(files[j])
	})
	return files, nil
}

func runMigrationsUp(ctx context.Context, pool *pgxpool.Pool, dir string) {
	files, err := migrationFiles(dir, "up")
	if err != nil {
		log.Fatalf("Failed to find migration files: %v", err)
	}

	for _, file := range files {
		version := extractVersion(file)
		if isApplied(ctx, pool, version) {
			log.Printf("Skipping %s (already applied)", version)
			continue
		}

		log.Printf("Applying %s...", version)
		if err := applyFile(ctx, pool, file, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			log.Fatalf("Failed to apply %s: %v", file, err)
		}
		log.Printf("Applied %s successfully", version)
	}
}

func runMigrationsDown(ctx context.Context, pool *pgxpool.Pool, dir string, steps int) {
	files, err := migrationFiles(dir, "down")
	if err != nil {
		log.Fatalf("Failed to find migration files: %v", err)
	}

	rolledBack := 0
	for i := len(files) - 1; i >= 0 && rolledBack < steps; i-- {
		file := files[i]
		version := extractVersion(file)
		if !isApplied(ctx, pool, version) {
			continue
		}

		log.Printf("Rolling back %s...", version)
		if err := applyFile(ctx, pool, file, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
			log.Fatalf("Failed to rollback %s: %v", file, err)
		}
		log.Printf("Rolled back %s successfully", version)
		rolledBack++
	}

	if rolledBack == 0 {
		log.Println("No migrations to rollback")
	}
}

// applyFile runs a migration and its bookkeeping statement in one transaction
func applyFile(ctx context.Context, pool *pgxpool.Pool, file, record, version string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read migration: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, record, version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", version, err)
	}
	return tx.Commit(ctx)
}

func showMigrationStatus(ctx context.Context, pool *pgxpool.Pool, dir string) {
	files, err := migrationFiles(dir, "up")
	if err != nil {
		log.Fatalf("Failed to find migration files: %v", err)
	}

	fmt.Println("Migration Status:")
	fmt.Println("=================")
	for _, file := range files {
		version := extractVersion(file)
		status := "PENDING"
		if isApplied(ctx, pool, version) {
			status = "APPLIED"
		}
		fmt.Printf("[%s] %s  %s\n", status, version, migrationName(file))
	}
}

// extractVersion returns the numeric prefix of "0001_init.up.sql"
func extractVersion(filename string) string {
	base := filepath.Base(filename)
	if i := strings.IndexByte(base, '_'); i > 0 {
		return base[:i]
	}
	return strings.SplitN(base, ".", 2)[0]
}

// migrationName returns the descriptive part of "0001_init.up.sql"
func migrationName(filename string) string {
	base := filepath.Base(filename)
	if i := strings.IndexByte(base, '_'); i > 0 {
		base = base[i+1:]
	}
	return strings.SplitN(base, ".", 2)[0]
}

func isApplied(ctx context.Context, pool *pgxpool.Pool, version string) bool {
	var count int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}
