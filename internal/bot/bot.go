package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/smartlms/remindbot/internal/apperrors"
	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
	"github.com/smartlms/remindbot/internal/service/telegram"
)

const (
	longPollTimeout = 30 * time.Second

	// Backoff after a failed getUpdates so a dead network does not spin the loop
	pollRetryDelay = 3 * time.Second

	dueAtFormat = "Mon, 2 Jan 15:04"
)

type api interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, buttons ...telegram.InlineButton) error
	AnswerCallback(ctx context.Context, callbackID string) error
	EditMessageButtons(ctx context.Context, chatID int64, messageID int64, buttons ...telegram.InlineButton) error
}

type userService interface {
	GetOrRegister(ctx context.Context, id int64) (models.User, error)
	SetActive(ctx context.Context, id int64, active bool) (models.User, bool, error)
	SetRemindInterval(ctx context.Context, id int64, interval time.Duration) (models.User, error)
	MinRemindInterval() time.Duration
}

type reminderService interface {
	SetActive(ctx context.Context, taskID int64, userID int64, active bool) error
}

type taskService interface {
	ListUpcoming(ctx context.Context, now time.Time) ([]models.Task, error)
}

// Bot is the command surface: it long polls for updates and translates
// commands and button presses into service calls
type Bot struct {
	api       api
	users     userService
	reminders reminderService
	tasks     taskService
	logger    logger.Logger

	now func() time.Time
}

func New(api api, users userService, reminders reminderService, tasks taskService, logger logger.Logger) *Bot {
	return &Bot{
		api:       api,
		users:     users,
		reminders: reminders,
		tasks:     tasks,
		logger:    logger,
		now:       time.Now,
	}
}

func (b *Bot) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	b.logger.Debug("Starting bot long poll")

	go func() {
		defer close(idleStopped)

		var offset int64
		for {
			select {
			case <-ctx.Done():
				b.logger.Debug("Bot stopped by context")
				return
			default:
			}

			updates, err := b.api.GetUpdates(ctx, offset, longPollTimeout)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}

				b.logger.Error("Failed to get updates", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(pollRetryDelay):
				}
				continue
			}

			for _, update := range updates {
				offset = update.UpdateID + 1
				b.dispatch(ctx, update)
			}
		}
	}()

	return idleStopped
}

func (b *Bot) dispatch(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, *update.CallbackQuery)

	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, *update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg telegram.Message) {
	command, args, _ := strings.Cut(strings.TrimSpace(msg.Text), " ")

	var err error
	switch command {
	case "/start":
		err = b.start(ctx, msg.Chat.ID)
	case "/stop":
		err = b.stop(ctx, msg.Chat.ID)
	case "/help":
		err = b.api.SendMessage(ctx, msg.Chat.ID, msgHelp)
	case "/deadlines":
		err = b.deadlines(ctx, msg.Chat.ID)
	case "/set_remind_interval":
		err = b.setRemindInterval(ctx, msg.Chat.ID, strings.TrimSpace(args))
	default:
		err = b.api.SendMessage(ctx, msg.Chat.ID, msgUnknownCommand)
	}

	if err != nil {
		b.logger.Error("Failed to handle command", "error", err, "command", command, "chat_id", msg.Chat.ID)
	}
}

func (b *Bot) start(ctx context.Context, chatID int64) error {
	if _, err := b.users.GetOrRegister(ctx, chatID); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	if _, _, err := b.users.SetActive(ctx, chatID, true); err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}

	return b.api.SendMessage(ctx, chatID, msgStart)
}

func (b *Bot) stop(ctx context.Context, chatID int64) error {
	if _, err := b.users.GetOrRegister(ctx, chatID); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	_, changed, err := b.users.SetActive(ctx, chatID, false)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	if !changed {
		return b.api.SendMessage(ctx, chatID, msgAlreadyStop)
	}
	return b.api.SendMessage(ctx, chatID, msgStop)
}

func (b *Bot) deadlines(ctx context.Context, chatID int64) error {
	tasks, err := b.tasks.ListUpcoming(ctx, b.now())
	if err != nil {
		return fmt.Errorf("failed to list upcoming tasks: %w", err)
	}

	if len(tasks) == 0 {
		return b.api.SendMessage(ctx, chatID, msgNoDeadlines)
	}

	var sb strings.Builder
	sb.WriteString("Upcoming deadlines:\n")
	for _, task := range tasks {
		kind := "📄"
		if task.Kind == models.TaskQuiz {
			kind = "❓"
		}
		sb.WriteString(fmt.Sprintf("\n%s <b>%s</b> — %s", kind, html.EscapeString(task.Name), task.DueAt.Format(dueAtFormat)))
	}

	return b.api.SendMessage(ctx, chatID, sb.String())
}

func (b *Bot) setRemindInterval(ctx context.Context, chatID int64, arg string) error {
	if _, err := b.users.GetOrRegister(ctx, chatID); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	interval, err := time.ParseDuration(arg)
	if err != nil || interval <= 0 {
		return b.api.SendMessage(ctx, chatID, msgIntervalUsage)
	}

	user, err := b.users.SetRemindInterval(ctx, chatID, interval)
	switch {
	case errors.Is(err, apperrors.ErrIntervalTooShort):
		text := fmt.Sprintf("That is too often. The shortest interval is %s.", b.users.MinRemindInterval())
		return b.api.SendMessage(ctx, chatID, text)
	case err != nil:
		return fmt.Errorf("failed to set remind interval: %w", err)
	}

	text := fmt.Sprintf("Got it. I will repeat reminders every %s.", user.RemindInterval)
	return b.api.SendMessage(ctx, chatID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb telegram.CallbackQuery) {
	action, taskID, err := parseCallback(cb.Data)
	if err != nil {
		b.logger.Warn("Ignoring malformed callback", "error", err, "user_id", cb.From.ID)
		if err := b.api.AnswerCallback(ctx, cb.ID); err != nil {
			b.logger.Error("Failed to answer callback", "error", err)
		}
		return
	}

	active := action == actionUnmute
	err = b.reminders.SetActive(ctx, taskID, cb.From.ID, active)
	if err != nil {
		b.logger.Error("Failed to toggle reminder", "error", err, "task_id", taskID, "user_id", cb.From.ID)
		if err := b.api.AnswerCallback(ctx, cb.ID); err != nil {
			b.logger.Error("Failed to answer callback", "error", err)
		}
		return
	}

	if err := b.api.AnswerCallback(ctx, cb.ID); err != nil {
		b.logger.Error("Failed to answer callback", "error", err)
	}

	// Swap the button under the original message so the next press toggles back
	if cb.Message != nil {
		button := MuteButton(taskID)
		if !active {
			button = UnmuteButton(taskID)
		}
		if err := b.api.EditMessageButtons(ctx, cb.Message.Chat.ID, cb.Message.MessageID, button); err != nil {
			b.logger.Error("Failed to swap reminder button", "error", err, "task_id", taskID)
		}
	}

	confirmation := msgTaskUnmuted
	if !active {
		confirmation = msgTaskMuted
	}
	if err := b.api.SendMessage(ctx, cb.From.ID, confirmation); err != nil {
		b.logger.Error("Failed to confirm reminder toggle", "error", err, "user_id", cb.From.ID)
	}
}
