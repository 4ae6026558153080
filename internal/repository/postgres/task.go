package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/smartlms/remindbot/internal/apperrors"
	"github.com/smartlms/remindbot/internal/models"
)

type TaskRepo struct {
	DB DBTX
}

const upsertTask = `-- name: UpsertTask
INSERT INTO lms_tasks (id, name, kind, due_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name, kind = EXCLUDED.kind, due_at = EXCLUDED.due_at
`

// Upsert tasks by their external id
// Tasks are never deleted, so historical ids persist even if the source
// later removes the item
func (r *TaskRepo) UpsertTasks(ctx context.Context, tasks []models.Task) error {
	batch := &pgx.Batch{}
	for _, task := range tasks {
		batch.Queue(upsertTask, task.ID, task.Name, task.Kind, task.DueAt)
	}

	err := r.DB.SendBatch(ctx, batch).Close()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const listKnownIDs = `-- name: ListKnownIDs
SELECT id FROM lms_tasks
`

func (r *TaskRepo) ListKnownIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, _ := r.DB.Query(ctx, listKnownIDs)
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	known := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}

	return known, nil
}

const listUnresolvedIDs = `-- name: ListUnresolvedIDs
SELECT id FROM lms_tasks
WHERE due_at IS NULL
`

func (r *TaskRepo) ListUnresolvedIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, _ := r.DB.Query(ctx, listUnresolvedIDs)
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	unresolved := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		unresolved[id] = struct{}{}
	}

	return unresolved, nil
}

const listUpcoming = `-- name: ListUpcoming
SELECT id, name, kind, due_at FROM lms_tasks
WHERE due_at > $1
ORDER BY due_at
`

func (r *TaskRepo) ListUpcoming(ctx context.Context, now time.Time) ([]models.Task, error) {
	rows, _ := r.DB.Query(ctx, listUpcoming, now)
	tasks, err := pgx.CollectRows(rows, rowToTask)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tasks, nil
}

const getTaskByID = `-- name: GetTaskByID
SELECT id, name, kind, due_at FROM lms_tasks
WHERE id = $1
`

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, getTaskByID, id)
	task, err := pgx.CollectOneRow(rows, rowToTask)

	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, pgx.ErrNoRows):
		return task, fmt.Errorf("repo error: %w", apperrors.ErrTaskNotFound)
	default:
		return task, fmt.Errorf("db error: %w", err)
	}
}

func rowToTask(row pgx.CollectableRow) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Name, &t.Kind, &t.DueAt)
	return t, err
}
