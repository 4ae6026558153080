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

func TestUserRepo(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("get or create", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.UserRepo{DB: tx}

			user, err := repo.GetOrCreate(t.Context(), 42)

			require.NoError(t, err)
			require.EqualValues(t, 42, user.ID)
			require.True(t, user.IsActive, "new users start active")
			require.Equal(t, models.DefaultRemindInterval, user.RemindInterval)
			require.WithinDuration(t, time.Now(), user.CreatedAt, time.Minute)
		})
	})

	t.Run("get or create is idempotent", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.UserRepo{DB: tx}

			first, err := repo.GetOrCreate(t.Context(), 42)
			require.NoError(t, err)

			// Change settings, then make sure the second call does not reset them
			first.IsActive = false
			first.RemindInterval = 12 * time.Hour
			require.NoError(t, repo.Update(t.Context(), first))

			second, err := repo.GetOrCreate(t.Context(), 42)

			require.NoError(t, err)
			require.False(t, second.IsActive)
			require.Equal(t, 12*time.Hour, second.RemindInterval)
		})
	})

	t.Run("update missing user", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.UserRepo{DB: tx}

			err := repo.Update(t.Context(), models.User{ID: 404, IsActive: true, RemindInterval: time.Hour})

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("get missing user", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.UserRepo{DB: tx}

			_, err := repo.Get(t.Context(), 404)

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("list active", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.UserRepo{DB: tx}

			active, err := repo.GetOrCreate(t.Context(), 42)
			require.NoError(t, err)

			paused, err := repo.GetOrCreate(t.Context(), 43)
			require.NoError(t, err)
			paused.IsActive = false
			require.NoError(t, repo.Update(t.Context(), paused))

			users, err := repo.ListActive(t.Context())

			require.NoError(t, err)
			require.Len(t, users, 1)
			require.Equal(t, active.ID, users[0].ID)
		})
	})
}
