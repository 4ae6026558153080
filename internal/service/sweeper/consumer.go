package sweeper

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/smartlms/remindbot/internal/bot"
	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
	"github.com/smartlms/remindbot/internal/service/telegram"
)

const dueAtFormat = "Monday, 2 January 2006 at 15:04"

type Consumer struct {
	countWorkers int

	sender    sender
	reminders reminderService
	users     userService
	logger    logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.User) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < c.countWorkers; i++ {
		wg.Add(1)
		go func() {
			c.worker(ctx, in)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Sweep consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.User) {
	for {
		select {
		case <-ctx.Done():
			return

		case user, ok := <-in:
			if !ok {
				c.logger.Debug("Sweep worker stopped, input channel closed")
				return
			}

			c.remindUser(ctx, user)
		}
	}
}

// remindUser delivers every due reminder to one user. A failed task does not
// block the rest, but a blocked recipient stops delivery for the whole user.
func (c *Consumer) remindUser(ctx context.Context, user models.User) {
	tasks, err := c.reminders.DueReminders(ctx, user.ID)
	if err != nil {
		c.logger.Error("Failed to collect due reminders", "error", err, "user_id", user.ID)
		return
	}

	for _, task := range tasks {
		err := c.sender.SendMessage(ctx, user.ID, reminderText(task), bot.MuteButton(task.ID))

		var tgErr *telegram.Error
		switch {
		case err == nil:
			if err := c.reminders.RecordSent(ctx, task.ID, user.ID, time.Now()); err != nil {
				c.logger.Error("Failed to record sent reminder", "error", err, "task_id", task.ID, "user_id", user.ID)
			}

		case errors.As(err, &tgErr) && tgErr.Code == telegram.CodeBlocked:
			c.logger.Info("User blocked the bot, deactivating", "user_id", user.ID)
			if _, _, err := c.users.SetActive(ctx, user.ID, false); err != nil {
				c.logger.Error("Failed to deactivate user", "error", err, "user_id", user.ID)
			}
			return

		default:
			c.logger.Error("Failed to send reminder", "error", err, "task_id", task.ID, "user_id", user.ID)
		}
	}
}

func reminderText(task models.Task) string {
	kind := "Assignment"
	if task.Kind == models.TaskQuiz {
		kind = "Quiz"
	}

	if task.DueAt == nil {
		return fmt.Sprintf("⏰ %s <b>%s</b> is waiting for you.", kind, html.EscapeString(task.Name))
	}

	return fmt.Sprintf("⏰ %s <b>%s</b> is due %s.", kind, html.EscapeString(task.Name), task.DueAt.Format(dueAtFormat))
}
