package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartlms/remindbot/internal/apperrors"
	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
)

type fakeTokens struct {
	err error
}

func (f *fakeTokens) GetValidToken(ctx context.Context, kind string) (models.Token, error) {
	if f.err != nil {
		return models.Token{}, f.err
	}
	return models.Token{Kind: kind, Value: "token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type fakeLMS struct {
	tasks     []models.Task
	deadlines map[int64]time.Time
}

func (f *fakeLMS) FetchTasks(ctx context.Context, access models.Token) ([]models.Task, error) {
	return f.tasks, nil
}

func (f *fakeLMS) AddDeadlines(ctx context.Context, access models.Token, tasks []models.Task) []models.Task {
	resolved := make([]models.Task, len(tasks))
	for i, task := range tasks {
		if dueAt, ok := f.deadlines[task.ID]; ok {
			task.DueAt = &dueAt
		}
		resolved[i] = task
	}
	return resolved
}

// memTaskRepo is an in-memory task mirror
type memTaskRepo struct {
	tasks map[int64]models.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: map[int64]models.Task{}}
}

func (r *memTaskRepo) UpsertTasks(ctx context.Context, tasks []models.Task) error {
	for _, task := range tasks {
		r.tasks[task.ID] = task
	}
	return nil
}

func (r *memTaskRepo) ListKnownIDs(ctx context.Context) (map[int64]struct{}, error) {
	known := map[int64]struct{}{}
	for id := range r.tasks {
		known[id] = struct{}{}
	}
	return known, nil
}

func (r *memTaskRepo) ListUnresolvedIDs(ctx context.Context) (map[int64]struct{}, error) {
	unresolved := map[int64]struct{}{}
	for id, task := range r.tasks {
		if task.DueAt == nil {
			unresolved[id] = struct{}{}
		}
	}
	return unresolved, nil
}

func (r *memTaskRepo) ListUpcoming(ctx context.Context, now time.Time) ([]models.Task, error) {
	var upcoming []models.Task
	for _, task := range r.tasks {
		if task.DueAfter(now) {
			upcoming = append(upcoming, task)
		}
	}
	return upcoming, nil
}

func (r *memTaskRepo) GetByID(ctx context.Context, id int64) (models.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return task, apperrors.ErrTaskNotFound
	}
	return task, nil
}

func TestService_Sync(t *testing.T) {
	t.Parallel()

	dueAt := time.Date(2030, time.June, 1, 12, 0, 0, 0, time.UTC)

	t.Run("new tasks stored with deadlines", func(t *testing.T) {
		lms := &fakeLMS{
			tasks: []models.Task{
				{ID: 11, Name: "Quiz", Kind: models.TaskQuiz},
				{ID: 12, Name: "Essay", Kind: models.TaskAssignment},
			},
			deadlines: map[int64]time.Time{11: dueAt, 12: dueAt},
		}
		repo := newMemTaskRepo()
		s := NewService(&fakeTokens{}, lms, repo, logger.NewNoOp())

		stored, err := s.Sync(t.Context())

		require.NoError(t, err)
		require.Len(t, stored, 2)
		require.Len(t, repo.tasks, 2)
		require.NotNil(t, repo.tasks[11].DueAt)
		require.Equal(t, dueAt, *repo.tasks[11].DueAt)
	})

	t.Run("already known ids are skipped", func(t *testing.T) {
		lms := &fakeLMS{
			tasks:     []models.Task{{ID: 11, Name: "Quiz", Kind: models.TaskQuiz}},
			deadlines: map[int64]time.Time{11: dueAt},
		}
		repo := newMemTaskRepo()
		s := NewService(&fakeTokens{}, lms, repo, logger.NewNoOp())

		_, err := s.Sync(t.Context())
		require.NoError(t, err)

		stored, err := s.Sync(t.Context())

		require.NoError(t, err)
		require.Empty(t, stored, "second sync of unchanged contents stores nothing")
	})

	t.Run("unresolved deadline retried later", func(t *testing.T) {
		lms := &fakeLMS{
			tasks:     []models.Task{{ID: 11, Name: "Quiz", Kind: models.TaskQuiz}},
			deadlines: map[int64]time.Time{},
		}
		repo := newMemTaskRepo()
		s := NewService(&fakeTokens{}, lms, repo, logger.NewNoOp())

		_, err := s.Sync(t.Context())
		require.NoError(t, err)
		require.Nil(t, repo.tasks[11].DueAt, "deadline could not be resolved yet")

		// The LMS page becomes parseable on a later cycle
		lms.deadlines[11] = dueAt

		stored, err := s.Sync(t.Context())

		require.NoError(t, err)
		require.Empty(t, stored, "re-resolved tasks are not reported as new")
		require.NotNil(t, repo.tasks[11].DueAt)
		require.Equal(t, dueAt, *repo.tasks[11].DueAt)
	})

	t.Run("auth unavailable propagates", func(t *testing.T) {
		s := NewService(&fakeTokens{err: apperrors.ErrAuthUnavailable}, &fakeLMS{}, newMemTaskRepo(), logger.NewNoOp())

		_, err := s.Sync(t.Context())

		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrAuthUnavailable)
	})
}
