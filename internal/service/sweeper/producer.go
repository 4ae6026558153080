package sweeper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
)

type Producer struct {
	interval time.Duration
	users    userService
	logger   logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.User) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting sweep producer", "interval", p.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Sweep producer stopped by context")
				return

			case <-ticker.C:
				sweepID := uuid.NewString()

				users, err := p.users.ListActive(ctx)
				if err != nil {
					p.logger.Error("Failed to list active users", "error", err, "sweep_id", sweepID)
					continue
				}
				p.logger.Debug("Sweep tick", "sweep_id", sweepID, "users", len(users))

				for _, user := range users {
					select {
					case <-ctx.Done():
						p.logger.Debug("Sweep producer stopped by context while sending users")
						return
					case out <- user:
					}
				}
			}
		}
	}()

	return idleStopped
}
