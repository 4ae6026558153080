package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/smartlms/remindbot/internal/logger"
)

const (
	defaultLoggingLevel      = logger.LevelInfo
	defaultEnvironment       = logger.EnvProduction
	defaultTimezone          = "Europe/Moscow"
	defaultSyncInterval      = time.Hour
	defaultSweepInterval     = 15 * time.Minute
	defaultMinRemindInterval = time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string `validate:"required"`

	// Environment
	Environment string `validate:"required,oneof=dev prod"`

	// Database to connect to
	DatabaseDSN string `validate:"required"`

	// Bot API token
	BotToken string `validate:"required"`

	// LMS account the deadlines are read with
	// Inline values win; CredentialsFile is the fallback for setups that
	// keep the secret out of the environment
	LMSUsername     string `validate:"required"`
	LMSPassword     string `validate:"required"`
	CredentialsFile string

	// ADFS endpoint the login flow starts at
	AuthorizeURL string `validate:"required,url"`

	// Host relative login form actions are resolved against
	LMSHost string `validate:"required,url"`

	// Webservice endpoint serving course contents
	WebserviceURL string `validate:"required,url"`

	// Base URL the task view pages live under
	ViewBaseURL string `validate:"required,url"`

	// Course and submodule the tasks are read from
	CourseID    int64 `validate:"required,gt=0"`
	SubmoduleID int64 `validate:"required,gt=0"`

	// Timezone deadlines on the LMS pages are rendered in
	Timezone string `validate:"required"`

	SyncInterval      time.Duration `validate:"gt=0"`
	SweepInterval     time.Duration `validate:"gt=0"`
	MinRemindInterval time.Duration `validate:"gt=0"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel:          defaultLoggingLevel,
		Environment:       defaultEnvironment,
		Timezone:          defaultTimezone,
		SyncInterval:      defaultSyncInterval,
		SweepInterval:     defaultSweepInterval,
		MinRemindInterval: defaultMinRemindInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt64 := func(o *int64) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("not an integer: %q", value)
			}
			*o = parsed
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			parsed, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("not a duration: %q", value)
			}
			*o = parsed
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"BOT_TOKEN":            setString(&c.BotToken),
		"LMS_USERNAME":         setString(&c.LMSUsername),
		"LMS_PASSWORD":         setString(&c.LMSPassword),
		"LMS_CREDENTIALS_FILE": setString(&c.CredentialsFile),
		"LMS_AUTHORIZE_URL":    setString(&c.AuthorizeURL),
		"LMS_HOST":             setString(&c.LMSHost),
		"LMS_WEBSERVICE_URL":   setString(&c.WebserviceURL),
		"LMS_VIEW_BASE_URL":    setString(&c.ViewBaseURL),
		"LMS_COURSE_ID":        setInt64(&c.CourseID),
		"LMS_SUBMODULE_ID":     setInt64(&c.SubmoduleID),
		"LMS_TIMEZONE":         setString(&c.Timezone),
		"SYNC_INTERVAL":        setDuration(&c.SyncInterval),
		"SWEEP_INTERVAL":       setDuration(&c.SweepInterval),
		"MIN_REMIND_INTERVAL":  setDuration(&c.MinRemindInterval),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("bad value of %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("remindbot", pflag.ContinueOnError)

	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.BotToken, "bot-token", "t", c.BotToken, "Bot API token")
	fs.StringVar(&c.LMSUsername, "lms-username", c.LMSUsername, "LMS account username")
	fs.StringVar(&c.LMSPassword, "lms-password", c.LMSPassword, "LMS account password")
	fs.StringVar(&c.CredentialsFile, "credentials-file", c.CredentialsFile, "File with LMS_USERNAME and LMS_PASSWORD entries")
	fs.StringVar(&c.AuthorizeURL, "authorize-url", c.AuthorizeURL, "ADFS authorize URL")
	fs.StringVar(&c.LMSHost, "lms-host", c.LMSHost, "ADFS host for relative form actions")
	fs.StringVar(&c.WebserviceURL, "webservice-url", c.WebserviceURL, "Course contents webservice URL")
	fs.StringVar(&c.ViewBaseURL, "view-base-url", c.ViewBaseURL, "Base URL of task view pages")
	fs.Int64Var(&c.CourseID, "course-id", c.CourseID, "Course to read tasks from")
	fs.Int64Var(&c.SubmoduleID, "submodule-id", c.SubmoduleID, "Submodule to read tasks from")
	fs.StringVar(&c.Timezone, "timezone", c.Timezone, "Timezone of deadlines on LMS pages")
	fs.DurationVar(&c.SyncInterval, "sync-interval", c.SyncInterval, "Interval between task catalog syncs")
	fs.DurationVar(&c.SweepInterval, "sweep-interval", c.SweepInterval, "Interval between reminder sweeps")
	fs.DurationVar(&c.MinRemindInterval, "min-remind-interval", c.MinRemindInterval, "Shortest per-user remind interval")

	return fs.Parse(args)
}

// LoadCredentialsFile fills the LMS credentials from the configured file
// The file uses .env syntax with LMS_USERNAME and LMS_PASSWORD entries;
// values set inline take precedence
func (c *Config) LoadCredentialsFile() error {
	if c.CredentialsFile == "" {
		return nil
	}

	envMap, err := godotenv.Read(c.CredentialsFile)
	if err != nil {
		return fmt.Errorf("can't read credentials file: %w", err)
	}

	if c.LMSUsername == "" {
		c.LMSUsername = envMap["LMS_USERNAME"]
	}
	if c.LMSPassword == "" {
		c.LMSPassword = envMap["LMS_PASSWORD"]
	}
	return nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
