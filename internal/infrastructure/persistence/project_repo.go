package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/domain/repository"
)

const projectColumns = `id, name, description, step_count, cells, constants, created_at, updated_at`

// projectRepo implements repository.ProjectRepository
type projectRepo struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(pool *pgxpool.Pool) repository.ProjectRepository {
	return &projectRepo{pool: pool}
}

func (r *projectRepo) Create(ctx context.Context, project *entity.Project) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	cells, constants, err := projectJSON(project)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query,
		project.ID, project.Name, project.Description, project.StepCount, cells, constants, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// CreateBatch uses PostgreSQL COPY protocol for high-performance bulk inserts
func (r *projectRepo) CreateBatch(ctx context.Context, projects []*entity.Project) (int64, error) {
	columns := []string{"id", "name", "description", "step_count", "cells", "constants", "created_at", "updated_at"}

	rows := make([][]interface{}, len(projects))
	for i, p := range projects {
		cells, constants, err := projectJSON(p)
		if err != nil {
			return 0, err
		}
		rows[i] = []interface{}{
			p.ID, p.Name, p.Description, p.StepCount, cells, constants, p.CreatedAt, p.UpdatedAt,
		}
	}

	copyCount, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"projects"},
		columns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy projects: %w", err)
	}

	return copyCount, nil
}

func (r *projectRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	project, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

func (r *projectRepo) List(ctx context.Context, limit, offset int) ([]*entity.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*entity.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// ListIDs pages through project ids in a stable order for the worker dispatcher
func (r *projectRepo) ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM projects ORDER BY id LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list project ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *projectRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM projects").Scan(&count)
	return count, err
}

func (r *projectRepo) Update(ctx context.Context, project *entity.Project) error {
	query := `
		UPDATE projects SET name = $2, description = $3, step_count = $4, cells = $5, constants = $6, updated_at = NOW()
		WHERE id = $1
	`
	cells, constants, err := projectJSON(project)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, project.ID, project.Name, project.Description, project.StepCount, cells, constants)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func projectJSON(p *entity.Project) ([]byte, []byte, error) {
	cells, err := p.CellsJSON()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode cells: %w", err)
	}
	constants, err := p.ConstantsJSON()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode constants: %w", err)
	}
	return cells, constants, nil
}

func scanProject(row pgx.Row) (*entity.Project, error) {
	var p entity.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.StepCount, &p.Cells, &p.Constants, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
