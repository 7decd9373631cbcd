package runs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) (string, error) {
	const sql = `
		INSERT INTO refresh_runs (catalog_id, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, sql, run.CatalogID, run.Status, run.StartedAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert refresh run: %w", err)
	}
	return id, nil
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE refresh_runs SET
			finished_at = $1,
			status = $2,
			items_fetched = $3,
			error = $4
		WHERE id = $5`

	if _, err := r.db.Exec(ctx, sql, run.FinishedAt, run.Status, run.ItemsFetched, run.Error, run.ID); err != nil {
		return fmt.Errorf("update refresh run %s: %w", run.ID, err)
	}
	return nil
}

func (r *PostgresRepo) ListRuns(ctx context.Context, catalogID string, limit int) ([]Run, error) {
	const sql = `
		SELECT id, catalog_id, started_at, finished_at, status, items_fetched, COALESCE(error, '')
		FROM refresh_runs
		WHERE catalog_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, catalogID, limit)
	if err != nil {
		return nil, fmt.Errorf("list refresh runs: %w", err)
	}
	defer rows.Close()

	out := make([]Run, 0, limit)
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.CatalogID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.ItemsFetched, &run.Error); err != nil {
			return nil, fmt.Errorf("scan refresh run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
