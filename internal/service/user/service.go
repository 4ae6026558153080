package user

import (
	"context"
	"fmt"
	"time"

	"github.com/smartlms/remindbot/internal/apperrors"
	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
	"github.com/smartlms/remindbot/internal/repository"
)

const defaultMinRemindInterval = time.Minute

type Config struct {
	// Shortest remind interval a user may set
	MinRemindInterval time.Duration
}

type Service struct {
	userRepo    repository.UserRepo
	minInterval time.Duration
	logger      logger.Logger
}

func NewService(cfg Config, userRepo repository.UserRepo, logger logger.Logger) *Service {
	if cfg.MinRemindInterval == 0 {
		cfg.MinRemindInterval = defaultMinRemindInterval
	}

	return &Service{
		userRepo:    userRepo,
		minInterval: cfg.MinRemindInterval,
		logger:      logger,
	}
}

// GetOrRegister returns the user, creating it with defaults on first contact
func (s *Service) GetOrRegister(ctx context.Context, id int64) (models.User, error) {
	user, err := s.userRepo.GetOrCreate(ctx, id)
	if err != nil {
		return user, fmt.Errorf("can't get or register user. Err: %w", err)
	}

	return user, nil
}

// SetActive turns reminders for the user on or off
// Reports whether the stored state actually changed
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (models.User, bool, error) {
	user, err := s.GetOrRegister(ctx, id)
	if err != nil {
		return user, false, err
	}

	if user.IsActive == active {
		return user, false, nil
	}

	s.logger.Info("Changing user activity", "user_id", id, "active", active)

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return user, false, fmt.Errorf("can't update user. Err: %w", err)
	}

	return user, true, nil
}

// SetRemindInterval changes how often the user is reminded
// Intervals below the configured minimum are rejected
func (s *Service) SetRemindInterval(ctx context.Context, id int64, interval time.Duration) (models.User, error) {
	user, err := s.GetOrRegister(ctx, id)
	if err != nil {
		return user, err
	}

	if interval < s.minInterval {
		return user, fmt.Errorf("%w: %s is less than %s", apperrors.ErrIntervalTooShort, interval, s.minInterval)
	}

	s.logger.Info("Changing remind interval", "user_id", id, "interval", interval)

	user.RemindInterval = interval
	if err := s.userRepo.Update(ctx, user); err != nil {
		return user, fmt.Errorf("can't update user. Err: %w", err)
	}

	return user, nil
}

// MinRemindInterval the service accepts
func (s *Service) MinRemindInterval() time.Duration {
	return s.minInterval
}

// ListActive returns users that receive reminders
func (s *Service) ListActive(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListActive(ctx)
}
