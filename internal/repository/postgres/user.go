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

type UserRepo struct {
	DB DBTX
}

const getOrCreateUser = `-- name: GetOrCreateUser
WITH new_user AS (
	INSERT INTO users (id)
	VALUES ($1)
	ON CONFLICT DO NOTHING
	RETURNING id, is_active, remind_interval_seconds, created_at
)
SELECT * FROM new_user
UNION
SELECT id, is_active, remind_interval_seconds, created_at FROM users WHERE id = $1
`

// Get the user or create it with defaults on first interaction
func (r *UserRepo) GetOrCreate(ctx context.Context, id int64) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getOrCreateUser, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)
	if err != nil {
		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUser = `-- name: GetUser
SELECT id, is_active, remind_interval_seconds, created_at FROM users
WHERE id = $1
`

func (r *UserRepo) Get(ctx context.Context, id int64) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUser, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const updateUser = `-- name: UpdateUser
UPDATE users
SET is_active = $2, remind_interval_seconds = $3
WHERE id = $1
`

func (r *UserRepo) Update(ctx context.Context, user models.User) error {
	tag, err := r.DB.Exec(ctx, updateUser, user.ID, user.IsActive, int64(user.RemindInterval/time.Second))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}

	return nil
}

const listActiveUsers = `-- name: ListActiveUsers
SELECT id, is_active, remind_interval_seconds, created_at FROM users
WHERE is_active
`

func (r *UserRepo) ListActive(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listActiveUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	var intervalSeconds int64

	err := row.Scan(&u.ID, &u.IsActive, &intervalSeconds, &u.CreatedAt)
	u.RemindInterval = time.Duration(intervalSeconds) * time.Second

	return u, err
}
