package poller

import (
	"context"
	"time"

	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
)

const defaultSyncInterval = time.Hour

type taskService interface {
	Sync(ctx context.Context) ([]models.Task, error)
}

type Config struct {
	SyncInterval time.Duration
}

// Poller keeps the local task catalog in sync with the LMS course page
type Poller struct {
	interval time.Duration
	tasks    taskService
	logger   logger.Logger
}

func New(cfg Config, tasks taskService, logger logger.Logger) *Poller {
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = defaultSyncInterval
	}

	return &Poller{
		interval: cfg.SyncInterval,
		tasks:    tasks,
		logger:   logger,
	}
}

func (p *Poller) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting task poller", "interval", p.interval)

	go func() {
		defer close(idleStopped)

		// First sync right away so a fresh deployment has tasks to remind about
		p.sync(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Task poller stopped by context")
				return

			case <-ticker.C:
				p.sync(ctx)
			}
		}
	}()

	return idleStopped
}

func (p *Poller) sync(ctx context.Context) {
	newTasks, err := p.tasks.Sync(ctx)
	if err != nil {
		p.logger.Error("Task sync failed", "error", err)
		return
	}

	if len(newTasks) > 0 {
		p.logger.Info("Task sync found new tasks", "count", len(newTasks))
	}
}
