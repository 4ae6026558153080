package sweeper

import (
	"context"
	"time"

	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
	"github.com/smartlms/remindbot/internal/service/telegram"
)

const (
	defaultCountWorkers  = 4                // Number of workers delivering reminders
	defaultSweepInterval = 15 * time.Minute // Interval between eligibility sweeps
)

type sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons ...telegram.InlineButton) error
}

type reminderService interface {
	DueReminders(ctx context.Context, userID int64) ([]models.Task, error)
	RecordSent(ctx context.Context, taskID int64, userID int64, at time.Time) error
}

type userService interface {
	ListActive(ctx context.Context) ([]models.User, error)
	SetActive(ctx context.Context, id int64, active bool) (models.User, bool, error)
}

type Config struct {
	SweepInterval time.Duration
	CountWorkers  int
}

// Sweeper periodically walks active users and delivers due reminders to them
type Sweeper struct {
	consumer *Consumer
	producer *Producer
}

func New(cfg Config, sender sender, reminders reminderService, users userService, logger logger.Logger) *Sweeper {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.CountWorkers == 0 {
		cfg.CountWorkers = defaultCountWorkers
	}

	return &Sweeper{
		consumer: &Consumer{
			countWorkers: cfg.CountWorkers,
			sender:       sender,
			reminders:    reminders,
			users:        users,
			logger:       logger,
		},
		producer: &Producer{
			interval: cfg.SweepInterval,
			users:    users,
			logger:   logger,
		},
	}
}

func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	userChan := make(chan models.User)

	// Start producer to enqueue active users on every sweep
	producerStopped := s.producer.Produce(ctx, userChan)

	// Start consumer to deliver due reminders
	consumerStopped := s.consumer.Consume(ctx, userChan)

	go func() {
		defer close(idleStopped)
		defer close(userChan)
		<-producerStopped
		<-consumerStopped
		s.consumer.logger.Debug("Sweeper stopped")
	}()

	return idleStopped
}
