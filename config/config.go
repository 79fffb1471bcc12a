package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Worker     WorkerConfig
	Simulation SimulationConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Env  string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	PoolMax         int
	PoolMinConns    int
	PoolMaxConnLife time.Duration
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	Count        int
	BatchSize    int
	PollInterval time.Duration
}

// SimulationConfig bounds the number of steps a single run may take.
type SimulationConfig struct {
	DefaultSteps int
	MaxSteps     int
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "stepsheet"),
			PoolMax:         getEnvInt("DB_POOL_MAX", 20),
			PoolMinConns:    getEnvInt("DB_POOL_MIN", 2),
			PoolMaxConnLife: time.Duration(getEnvInt("DB_POOL_MAX_CONN_LIFE_MINUTES", 30)) * time.Minute,
		},
		Worker: WorkerConfig{
			Count:        getEnvInt("WORKER_COUNT", 8),
			BatchSize:    getEnvInt("BATCH_SIZE", 5000),
			PollInterval: getEnvSeconds("WORKER_POLL_SECONDS", 30),
		},
		Simulation: SimulationConfig{
			DefaultSteps: getEnvInt("SIM_DEFAULT_STEPS", 10),
			MaxSteps:     getEnvInt("SIM_MAX_STEPS", 1000),
		},
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=disable"
}

// ClampSteps returns the requested step count, falling back to the default
// when it is not positive and capping it at MaxSteps.
func (c *SimulationConfig) ClampSteps(requested int) int {
	if requested <= 0 {
		requested = c.DefaultSteps
	}
	if c.MaxSteps > 0 && requested > c.MaxSteps {
		return c.MaxSteps
	}
	return requested
}

// Validate rejects settings the services cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.Database.PoolMax < 1 {
		errs = append(errs, fmt.Errorf("DB_POOL_MAX must be at least 1, got %d", c.Database.PoolMax))
	}
	if c.Worker.Count < 1 {
		errs = append(errs, fmt.Errorf("WORKER_COUNT must be at least 1, got %d", c.Worker.Count))
	}
	if c.Worker.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("WORKER_POLL_SECONDS must be positive"))
	}
	if c.Simulation.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("SIM_MAX_STEPS must be at least 1, got %d", c.Simulation.MaxSteps))
	}
	if c.Simulation.DefaultSteps < 1 || c.Simulation.DefaultSteps > c.Simulation.MaxSteps {
		errs = append(errs, fmt.Errorf("SIM_DEFAULT_STEPS must be between 1 and SIM_MAX_STEPS, got %d", c.Simulation.DefaultSteps))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
