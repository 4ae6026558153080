package task

import (
	"context"
	"fmt"
	"time"

	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
	"github.com/smartlms/remindbot/internal/repository"
)

type tokenManager interface {
	GetValidToken(ctx context.Context, kind string) (models.Token, error)
}

type lmsClient interface {
	FetchTasks(ctx context.Context, access models.Token) ([]models.Task, error)
	AddDeadlines(ctx context.Context, access models.Token, tasks []models.Task) []models.Task
}

// Service keeps the local task mirror in sync with the LMS
type Service struct {
	tokens   tokenManager
	lms      lmsClient
	taskRepo repository.TaskRepo
	logger   logger.Logger
}

func NewService(tokens tokenManager, lms lmsClient, taskRepo repository.TaskRepo, logger logger.Logger) *Service {
	return &Service{
		tokens:   tokens,
		lms:      lms,
		taskRepo: taskRepo,
		logger:   logger,
	}
}

// Sync fetches the current LMS items and stores what changed
//
// Only newly seen ids are deadline-resolved and persisted: resolution
// costs one page fetch per task, so already-stored items are skipped.
// Stored tasks whose deadline is still unresolved get another resolution
// attempt, their records transition from absent to present at most once.
// Returns the newly stored tasks.
func (s *Service) Sync(ctx context.Context) ([]models.Task, error) {
	access, err := s.tokens.GetValidToken(ctx, models.TokenAccess)
	if err != nil {
		return nil, fmt.Errorf("task sync: %w", err)
	}

	fetched, err := s.lms.FetchTasks(ctx, access)
	if err != nil {
		return nil, fmt.Errorf("task sync: %w", err)
	}

	known, err := s.taskRepo.ListKnownIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("task sync: %w", err)
	}

	unresolved, err := s.taskRepo.ListUnresolvedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("task sync: %w", err)
	}

	var newTasks, retryTasks []models.Task
	for _, task := range fetched {
		if _, ok := known[task.ID]; !ok {
			newTasks = append(newTasks, task)
			continue
		}
		if _, ok := unresolved[task.ID]; ok {
			retryTasks = append(retryTasks, task)
		}
	}

	if len(newTasks) == 0 && len(retryTasks) == 0 {
		s.logger.Debug("No new tasks available")
		return nil, nil
	}

	newTasks = s.lms.AddDeadlines(ctx, access, newTasks)

	// Re-resolved tasks are only rewritten once a deadline is known
	var resolved []models.Task
	for _, task := range s.lms.AddDeadlines(ctx, access, retryTasks) {
		if task.DueAt != nil {
			resolved = append(resolved, task)
		}
	}

	if err := s.taskRepo.UpsertTasks(ctx, append(newTasks, resolved...)); err != nil {
		return nil, fmt.Errorf("task sync: %w", err)
	}

	s.logger.Info("Task sync finished", "new", len(newTasks), "resolved_late", len(resolved))
	return newTasks, nil
}

// ListUpcoming returns stored tasks with a deadline still ahead
func (s *Service) ListUpcoming(ctx context.Context, now time.Time) ([]models.Task, error) {
	return s.taskRepo.ListUpcoming(ctx, now)
}

// Get returns the stored task by its external id
func (s *Service) Get(ctx context.Context, id int64) (models.Task, error) {
	return s.taskRepo.GetByID(ctx, id)
}
