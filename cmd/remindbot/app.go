package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartlms/remindbot/internal/bot"
	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/repository/postgres"
	"github.com/smartlms/remindbot/internal/service/lmsauth"
	"github.com/smartlms/remindbot/internal/service/lmstasks"
	"github.com/smartlms/remindbot/internal/service/poller"
	"github.com/smartlms/remindbot/internal/service/reminder"
	"github.com/smartlms/remindbot/internal/service/sweeper"
	"github.com/smartlms/remindbot/internal/service/task"
	"github.com/smartlms/remindbot/internal/service/telegram"
	"github.com/smartlms/remindbot/internal/service/token"
	"github.com/smartlms/remindbot/internal/service/user"
)

type App struct {
	pool    *pgxpool.Pool
	bot     *bot.Bot
	sweeper *sweeper.Sweeper
	poller  *poller.Poller
	logger  logger.Logger
}

func NewApp(ctx context.Context, c *Config) (*App, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}

	// Connect to the database and run migrations
	pool, err := postgres.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize LMS clients
	authClient := lmsauth.NewClient(lmsauth.Config{
		AuthorizeURL: c.AuthorizeURL,
		Host:         c.LMSHost,
	}, logger)
	tasksClient := lmstasks.NewClient(lmstasks.Config{
		WebserviceURL: c.WebserviceURL,
		ViewBaseURL:   c.ViewBaseURL,
		CourseID:      c.CourseID,
		SubmoduleID:   c.SubmoduleID,
		Location:      location,
	}, logger)
	botAPI := telegram.NewClient(telegram.Config{Token: c.BotToken}, logger)

	// Initialize services
	tokenManager, err := token.New(token.Config{
		Credentials: token.Credentials{
			Username: c.LMSUsername,
			Password: c.LMSPassword,
		},
	}, authClient, storage.Token(), logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(user.Config{MinRemindInterval: c.MinRemindInterval}, storage.User(), logger)
	reminderService := reminder.NewService(storage.Reminder(), logger)
	taskService := task.NewService(tokenManager, tasksClient, storage.Task(), logger)

	return &App{
		pool:    pool,
		bot:     bot.New(botAPI, userService, reminderService, taskService, logger),
		sweeper: sweeper.New(sweeper.Config{SweepInterval: c.SweepInterval}, botAPI, reminderService, userService, logger),
		poller:  poller.New(poller.Config{SyncInterval: c.SyncInterval}, taskService, logger),
		logger:  logger,
	}, nil
}

// Run starts the bot and both background loops, blocks until the context is
// cancelled and every loop has drained
func (a *App) Run(ctx context.Context) error {
	defer a.pool.Close()

	a.logger.Info("Starting remindbot")

	botStopped := a.bot.Run(ctx)
	sweeperStopped := a.sweeper.Run(ctx)
	pollerStopped := a.poller.Run(ctx)

	<-botStopped
	<-sweeperStopped
	<-pollerStopped

	a.logger.Info("Remindbot stopped")
	return nil
}
