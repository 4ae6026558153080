package repository

import (
	"context"
	"time"

	"github.com/smartlms/remindbot/internal/models"
)

// Token repository interface (credential store)
type TokenRepo interface {
	// Upsert token by kind, at most one live row per kind exists
	Save(ctx context.Context, token models.Token) error

	// Return a stored token of the kind that is valid after 'now'
	// If no such token exists must return apperrors.ErrTokenNotFound
	GetValid(ctx context.Context, kind string, now time.Time) (models.Token, error)
}

// Task repository interface
type TaskRepo interface {
	// Upsert tasks by their external id (replace-by-id, never duplicates)
	UpsertTasks(ctx context.Context, tasks []models.Task) error

	// Return the set of all task ids ever stored
	// Used to deduplicate newly scraped items against already-stored ones
	ListKnownIDs(ctx context.Context) (map[int64]struct{}, error)

	// Return ids of stored tasks whose deadline is still unresolved
	ListUnresolvedIDs(ctx context.Context) (map[int64]struct{}, error)

	// Return tasks with a resolved deadline later than 'now'
	ListUpcoming(ctx context.Context, now time.Time) ([]models.Task, error)

	// Return the task by id
	// If the task not found must return apperrors.ErrTaskNotFound
	GetByID(ctx context.Context, id int64) (models.Task, error)
}

// User repository interface
type UserRepo interface {
	// Create the user with defaults if it not exists, return the stored row
	GetOrCreate(ctx context.Context, id int64) (models.User, error)

	// Return the user by id
	// If the user not found must return apperrors.ErrUserNotFound
	Get(ctx context.Context, id int64) (models.User, error)

	// Replace the user row by id
	Update(ctx context.Context, user models.User) error

	ListActive(ctx context.Context) ([]models.User, error)
}

// Reminder ledger repository interface
//
// SetLastReminded and SetActive are independent partial upserts: each
// touches only its own column so the two never clobber each other.
type ReminderRepo interface {
	// Tasks the user must be reminded about right now:
	// due date known and after 'now', and either no ledger row exists yet
	// or the row is active and the user interval has elapsed
	DueForUser(ctx context.Context, userID int64, now time.Time) ([]models.Task, error)

	SetLastReminded(ctx context.Context, taskID int64, userID int64, at time.Time) error

	SetActive(ctx context.Context, taskID int64, userID int64, active bool) error

	// Return the ledger entry
	// If it not exists must return apperrors.ErrTaskNotFound
	Get(ctx context.Context, taskID int64, userID int64) (models.Reminder, error)
}

// Storage aggregates all repositories over one connection or transaction
type Storage interface {
	Token() TokenRepo
	Task() TaskRepo
	User() UserRepo
	Reminder() ReminderRepo

	// Run fn within a database transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
