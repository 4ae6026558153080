package postgres_test

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/smartlms/remindbot/internal/apperrors"
	"github.com/smartlms/remindbot/internal/models"
	"github.com/smartlms/remindbot/internal/repository/postgres"
	"github.com/smartlms/remindbot/internal/testutil"
)

func TestTaskRepo(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	t.Run("upsert and get", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.TaskRepo{DB: tx}

			err := repo.UpsertTasks(t.Context(), []models.Task{
				{ID: 7, Name: "Graph theory quiz", Kind: models.TaskQuiz, DueAt: &due},
				{ID: 8, Name: "Essay", Kind: models.TaskAssignment},
			})
			require.NoError(t, err)

			task, err := repo.GetByID(t.Context(), 7)
			require.NoError(t, err)
			require.Equal(t, "Graph theory quiz", task.Name)
			require.Equal(t, models.TaskQuiz, task.Kind)
			require.True(t, task.DueAt.Equal(due))

			task, err = repo.GetByID(t.Context(), 8)
			require.NoError(t, err)
			require.Nil(t, task.DueAt, "deadline should stay unknown until resolved")
		})
	})

	t.Run("upsert twice keeps one row and refreshes fields", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.TaskRepo{DB: tx}

			require.NoError(t, repo.UpsertTasks(t.Context(), []models.Task{{ID: 7, Name: "Essay", Kind: models.TaskAssignment}}))

			moved := due.Add(24 * time.Hour)
			require.NoError(t, repo.UpsertTasks(t.Context(), []models.Task{{ID: 7, Name: "Essay (updated)", Kind: models.TaskAssignment, DueAt: &moved}}))

			known, err := repo.ListKnownIDs(t.Context())
			require.NoError(t, err)
			require.Len(t, known, 1)

			task, err := repo.GetByID(t.Context(), 7)
			require.NoError(t, err)
			require.Equal(t, "Essay (updated)", task.Name)
			require.True(t, task.DueAt.Equal(moved))
		})
	})

	t.Run("unresolved ids are the ones without due date", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.TaskRepo{DB: tx}

			require.NoError(t, repo.UpsertTasks(t.Context(), []models.Task{
				{ID: 7, Name: "Quiz", Kind: models.TaskQuiz, DueAt: &due},
				{ID: 8, Name: "Essay", Kind: models.TaskAssignment},
			}))

			unresolved, err := repo.ListUnresolvedIDs(t.Context())

			require.NoError(t, err)
			require.Equal(t, map[int64]struct{}{8: {}}, unresolved)
		})
	})

	t.Run("upcoming excludes passed deadlines", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.TaskRepo{DB: tx}

			passed := now.Add(-time.Hour)
			require.NoError(t, repo.UpsertTasks(t.Context(), []models.Task{
				{ID: 7, Name: "Quiz", Kind: models.TaskQuiz, DueAt: &due},
				{ID: 8, Name: "Old quiz", Kind: models.TaskQuiz, DueAt: &passed},
				{ID: 9, Name: "Essay", Kind: models.TaskAssignment},
			}))

			upcoming, err := repo.ListUpcoming(t.Context(), now)

			require.NoError(t, err)
			require.Len(t, upcoming, 1)
			require.EqualValues(t, 7, upcoming[0].ID)
		})
	})

	t.Run("get missing task", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.TaskRepo{DB: tx}

			_, err := repo.GetByID(t.Context(), 404)

			require.ErrorIs(t, err, apperrors.ErrTaskNotFound)
		})
	})
}
