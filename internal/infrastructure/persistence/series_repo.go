package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilramdhan/stepsheet/internal/domain/entity"
	"github.com/ilramdhan/stepsheet/internal/domain/repository"
)

// dataSeriesRepo implements repository.DataSeriesRepository
type dataSeriesRepo struct {
	pool *pgxpool.Pool
}

// NewDataSeriesRepository creates a new data series repository
func NewDataSeriesRepository(pool *pgxpool.Pool) repository.DataSeriesRepository {
	return &dataSeriesRepo{pool: pool}
}

func (r *dataSeriesRepo) Upsert(ctx context.Context, series *entity.DataSeries) error {
	query := `
		INSERT INTO data_series (project_id, cell_id, series_values, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, cell_id) DO UPDATE SET
			series_values = EXCLUDED.series_values,
			updated_at = EXCLUDED.updated_at
	`
	values, err := series.ValuesJSON()
	if err != nil {
		return fmt.Errorf("failed to encode series values: %w", err)
	}
	_, err = r.pool.Exec(ctx, query, series.ProjectID, series.CellID, values, series.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert series: %w", err)
	}
	return nil
}

// UpsertBatch copies into a temp table and merges it, since COPY itself cannot upsert
func (r *dataSeriesRepo) UpsertBatch(ctx context.Context, series []*entity.DataSeries) (int64, error) {
	if len(series) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tempTable := fmt.Sprintf("temp_series_%d", time.Now().UnixNano())
	_, err = tx.Exec(ctx, fmt.Sprintf(`
		CREATE TEMP TABLE %s (
			project_id UUID,
			cell_id VARCHAR(16),
			series_values JSONB,
			updated_at TIMESTAMPTZ
		) ON COMMIT DROP
	`, tempTable))
	if err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	columns := []string{"project_id", "cell_id", "series_values", "updated_at"}
	rows := make([][]interface{}, len(series))
	for i, s := range series {
		values, err := s.ValuesJSON()
		if err != nil {
			return 0, fmt.Errorf("failed to encode series values: %w", err)
		}
		rows[i] = []interface{}{s.ProjectID, s.CellID, values, s.UpdatedAt}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy to temp table: %w", err)
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO data_series (project_id, cell_id, series_values, updated_at)
		SELECT DISTINCT ON (project_id, cell_id) project_id, cell_id, series_values, updated_at FROM %s
		ORDER BY project_id, cell_id, updated_at DESC
		ON CONFLICT (project_id, cell_id) DO UPDATE SET
			series_values = EXCLUDED.series_values,
			updated_at = EXCLUDED.updated_at
	`, tempTable))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert from temp table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return copyCount, nil
}

func (r *dataSeriesRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*entity.DataSeries, error) {
	query := `
		SELECT project_id, cell_id, series_values, updated_at
		FROM data_series WHERE project_id = $1 ORDER BY cell_id
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	var series []*entity.DataSeries
	for rows.Next() {
		var s entity.DataSeries
		if err := rows.Scan(&s.ProjectID, &s.CellID, &s.Values, &s.UpdatedAt); err != nil {
			return nil, err
		}
		series = append(series, &s)
	}
	return series, rows.Err()
}
