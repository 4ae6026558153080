package reminder

import (
	"context"
	"time"

	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
	"github.com/smartlms/remindbot/internal/repository"
)

// Service decides which deadlines a user must be reminded about and keeps
// the per (task, user) reminder ledger.
type Service struct {
	reminderRepo repository.ReminderRepo
	logger       logger.Logger

	now func() time.Time
}

func NewService(reminderRepo repository.ReminderRepo, logger logger.Logger) *Service {
	return &Service{
		reminderRepo: reminderRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// DueReminders returns the tasks the user must be reminded about right now
//
// A task is due when its deadline is known and still ahead, and either no
// reminder was ever sent for it, or reminders are active for it and at
// least the user's remind interval passed since the last one. Pure query,
// nothing is recorded until RecordSent.
func (s *Service) DueReminders(ctx context.Context, userID int64) ([]models.Task, error) {
	tasks, err := s.reminderRepo.DueForUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Computed due reminders", "user_id", userID, "count", len(tasks))
	return tasks, nil
}

// RecordSent stores when the reminder went out
// Must be called only after the send succeeded
func (s *Service) RecordSent(ctx context.Context, taskID int64, userID int64, at time.Time) error {
	s.logger.Info("Recording sent reminder", "task_id", taskID, "user_id", userID)
	return s.reminderRepo.SetLastReminded(ctx, taskID, userID, at)
}

// SetActive toggles reminders for one task, independent of the user's
// global activity status and of the reminder clock
func (s *Service) SetActive(ctx context.Context, taskID int64, userID int64, active bool) error {
	s.logger.Info("Toggling task reminders", "task_id", taskID, "user_id", userID, "active", active)
	return s.reminderRepo.SetActive(ctx, taskID, userID, active)
}
