package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func run(ctx context.Context, getenv func(string) string, getwd func() (string, error), args []string) error {
	config := NewConfig()
	if err := config.LoadDotEnv(getwd); err != nil {
		return fmt.Errorf("can't read .env file: %w", err)
	}
	if err := config.LoadEnv(getenv); err != nil {
		return fmt.Errorf("bad environment variable: %w", err)
	}
	if err := config.ParseFlags(args); err != nil {
		return fmt.Errorf("can't parse flags: %w", err)
	}
	if err := config.LoadCredentialsFile(); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	app, err := NewApp(ctx, config)
	if err != nil {
		return fmt.Errorf("can't initialize app: %w", err)
	}

	return app.Run(ctx)
}

func main() {
	// Initialize context that cancelled on SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		slog.Warn("Interrupt signal")
		cancel()
	}()

	if err := run(ctx, os.Getenv, os.Getwd, os.Args[1:]); err != nil {
		slog.Error("can't run app, sorry", "error", err.Error())
		os.Exit(1)
	}
}
