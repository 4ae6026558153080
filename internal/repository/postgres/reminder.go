package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/smartlms/remindbot/internal/apperrors"
	"github.com/smartlms/remindbot/internal/models"
)

type ReminderRepo struct {
	DB DBTX
}

const dueForUser = `-- name: DueForUser
SELECT t.id, t.name, t.kind, t.due_at
FROM lms_tasks t
LEFT JOIN reminders r ON r.task_id = t.id AND r.user_id = $1
JOIN users u ON u.id = $1
WHERE t.due_at > $2
AND (
	r.task_id IS NULL
	OR (
		r.is_active
		AND (
			r.last_reminded_at IS NULL
			OR r.last_reminded_at + u.remind_interval_seconds * interval '1 second' <= $2
		)
	)
)
ORDER BY t.due_at
`

// Tasks the user is due to be reminded about at 'now'
//
// A task qualifies when its deadline is known and still ahead, and either
// no ledger row exists for the (task, user) pair yet, or the row is active
// and at least the user's remind interval passed since the last reminder.
// Overdue tasks and tasks with unresolved deadlines never qualify.
func (r *ReminderRepo) DueForUser(ctx context.Context, userID int64, now time.Time) ([]models.Task, error) {
	rows, _ := r.DB.Query(ctx, dueForUser, userID, now)
	tasks, err := pgx.CollectRows(rows, rowToTask)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tasks, nil
}

const setLastReminded = `-- name: SetLastReminded
INSERT INTO reminders (task_id, user_id, last_reminded_at)
VALUES ($1, $2, $3)
ON CONFLICT (task_id, user_id) DO UPDATE
SET last_reminded_at = EXCLUDED.last_reminded_at
`

// Record that a reminder was sent
// Partial upsert: is_active is never touched here
func (r *ReminderRepo) SetLastReminded(ctx context.Context, taskID int64, userID int64, at time.Time) error {
	_, err := r.DB.Exec(ctx, setLastReminded, taskID, userID, at)
	if err != nil {
		return wrapReminderWriteErr(err)
	}

	return nil
}

const setReminderActive = `-- name: SetReminderActive
INSERT INTO reminders (task_id, user_id, is_active)
VALUES ($1, $2, $3)
ON CONFLICT (task_id, user_id) DO UPDATE
SET is_active = EXCLUDED.is_active
`

// Toggle reminders for one task
// Partial upsert: a never-reminded entry keeps last_reminded_at NULL even
// after the user opts out and back in, so the reminder clock never resets
func (r *ReminderRepo) SetActive(ctx context.Context, taskID int64, userID int64, active bool) error {
	_, err := r.DB.Exec(ctx, setReminderActive, taskID, userID, active)
	if err != nil {
		return wrapReminderWriteErr(err)
	}

	return nil
}

const getReminder = `-- name: GetReminder
SELECT task_id, user_id, last_reminded_at, is_active FROM reminders
WHERE task_id = $1 AND user_id = $2
`

func (r *ReminderRepo) Get(ctx context.Context, taskID int64, userID int64) (models.Reminder, error) {
	rows, _ := r.DB.Query(ctx, getReminder, taskID, userID)
	reminder, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.Reminder, error) {
		var rem models.Reminder
		err := row.Scan(&rem.TaskID, &rem.UserID, &rem.LastRemindedAt, &rem.IsActive)
		return rem, err
	})

	switch {
	case err == nil:
		return reminder, nil
	case errors.Is(err, pgx.ErrNoRows):
		return reminder, fmt.Errorf("repo error: %w", apperrors.ErrTaskNotFound)
	default:
		return reminder, fmt.Errorf("db error: %w", err)
	}
}

// Map foreign key violations to the missing referenced entity
func wrapReminderWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		switch {
		case strings.Contains(pgErr.ConstraintName, "user"):
			return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
		default:
			return fmt.Errorf("repo error: %w", apperrors.ErrTaskNotFound)
		}
	}

	return fmt.Errorf("db error: %w", err)
}
