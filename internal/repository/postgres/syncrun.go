package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/linesync/internal/models"
)

type SyncRunRepo struct {
	DB DBTX
}

const createSyncRun = `-- name: CreateSyncRun
INSERT INTO sync_runs (id, line, pushed, pulled, status, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, line, pushed, pulled, status, error, started_at, finished_at
`

// Save run, new id is generated if not set
func (r *SyncRunRepo) CreateRun(ctx context.Context, run models.SyncRun) (models.SyncRun, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createSyncRun, run.ID, run.Line, run.Pushed, run.Pulled, run.Status, run.Error, run.StartedAt, run.FinishedAt)
	saved, err := pgx.CollectOneRow(rows, rowToSyncRun)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const listSyncRuns = `-- name: ListSyncRuns
SELECT id, line, pushed, pulled, status, error, started_at, finished_at
FROM sync_runs
WHERE line = $1
ORDER BY started_at DESC
LIMIT $2
`

func (r *SyncRunRepo) ListRuns(ctx context.Context, line int, limit int) ([]models.SyncRun, error) {
	rows, _ := r.DB.Query(ctx, listSyncRuns, line, limit)
	runs, err := pgx.CollectRows(rows, rowToSyncRun)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return runs, nil
}

func rowToSyncRun(row pgx.CollectableRow) (models.SyncRun, error) {
	var run models.SyncRun
	err := row.Scan(&run.ID, &run.Line, &run.Pushed, &run.Pulled, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt)
	return run, err
}
