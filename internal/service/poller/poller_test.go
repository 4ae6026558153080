package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
)

type fakeTaskService struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *fakeTaskService) Sync(_ context.Context) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []models.Task{{ID: 7, Name: "Graph theory quiz", Kind: models.TaskQuiz}}, nil
}

func (s *fakeTaskService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestPoller_Run(t *testing.T) {
	t.Run("syncs immediately and then on every tick", func(t *testing.T) {
		tasks := &fakeTaskService{}
		p := New(Config{SyncInterval: 10 * time.Millisecond}, tasks, logger.NewNoOp())

		ctx, cancel := context.WithCancel(t.Context())
		stopped := p.Run(ctx)

		require.Eventually(t, func() bool { return tasks.callCount() >= 3 }, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("poller did not stop after context cancellation")
		}
	})

	t.Run("keeps running after a failed sync", func(t *testing.T) {
		tasks := &fakeTaskService{err: errors.New("lms is down")}
		p := New(Config{SyncInterval: 10 * time.Millisecond}, tasks, logger.NewNoOp())

		ctx, cancel := context.WithCancel(t.Context())
		stopped := p.Run(ctx)

		require.Eventually(t, func() bool { return tasks.callCount() >= 2 }, time.Second, 5*time.Millisecond)

		cancel()
		<-stopped
	})
}
