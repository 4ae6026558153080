package lmstasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
)

const (
	CodeFetch = "fetch" // network failure or unexpected status
	CodeParse = "parse" // expected field missing in the response

	defaultTimeout = 30 * time.Second

	wsFunctionCourseContents = "core_course_get_contents"
)

type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %s, error: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

type Config struct {
	// Moodle webservice endpoint answering course content requests
	WebserviceURL string

	// Base URL the per-task view pages live under, e.g. https://lms.example.com/mod
	ViewBaseURL string

	CourseID    int64
	SubmoduleID int64

	// Timezone the LMS renders due dates in
	Location *time.Location

	Timeout time.Duration
}

// Client fetches deadline-bearing items from the LMS: the course contents
// webservice lists the items, per-item view pages carry the due dates.
type Client struct {
	webserviceURL string
	viewBaseURL   string
	courseID      int64
	submoduleID   int64
	location      *time.Location

	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, logger logger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Client{
		webserviceURL: cfg.WebserviceURL,
		viewBaseURL:   strings.TrimRight(cfg.ViewBaseURL, "/"),
		courseID:      cfg.CourseID,
		submoduleID:   cfg.SubmoduleID,
		location:      cfg.Location,
		client:        &http.Client{Timeout: cfg.Timeout},
		logger:        logger,
	}
}

type courseSection struct {
	ID      int64 `json:"id"`
	Modules []struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		ModName string `json:"modname"`
	} `json:"modules"`
}

// FetchTasks returns the tracked submodule's quiz and assignment items,
// deadlines unresolved. Untracked module kinds (labels, resources) are
// skipped silently.
func (c *Client) FetchTasks(ctx context.Context, access models.Token) ([]models.Task, error) {
	form := url.Values{
		"wsfunction":            {wsFunctionCourseContents},
		"courseid":              {strconv.FormatInt(c.courseID, 10)},
		"moodlewssettinglang":   {"en"},
		"moodlewsrestformat":    {"json"},
		"moodlewssettingfilter": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webserviceURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, NewError(CodeFetch, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+access.Value)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewError(CodeFetch, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, NewError(CodeFetch, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var sections []courseSection
	if err := json.NewDecoder(resp.Body).Decode(&sections); err != nil {
		return nil, NewError(CodeParse, fmt.Errorf("failed to decode course contents: %w", err))
	}

	for _, section := range sections {
		if section.ID != c.submoduleID {
			continue
		}

		var tasks []models.Task
		for _, mod := range section.Modules {
			if mod.ModName != models.TaskQuiz && mod.ModName != models.TaskAssignment {
				continue
			}

			tasks = append(tasks, models.Task{
				ID:   mod.ID,
				Name: unescapeHTML(mod.Name),
				Kind: mod.ModName,
			})
		}

		c.logger.Debug("Fetched tasks from LMS", "count", len(tasks))
		return tasks, nil
	}

	return nil, NewError(CodeParse, fmt.Errorf("submodule %d not found in course contents", c.submoduleID))
}

// ResolveDeadline fetches the task's view page and extracts the due date
func (c *Client) ResolveDeadline(ctx context.Context, access models.Token, task models.Task) (time.Time, error) {
	var zero time.Time

	viewURL, err := c.viewURL(task, access)
	if err != nil {
		return zero, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, viewURL, nil)
	if err != nil {
		return zero, NewError(CodeFetch, fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return zero, NewError(CodeFetch, fmt.Errorf("failed to fetch task view: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return zero, NewError(CodeFetch, fmt.Errorf("unexpected status code %d for task %d", resp.StatusCode, task.ID))
	}

	switch task.Kind {
	case models.TaskAssignment:
		return parseAssignmentDeadline(resp.Body, c.location)
	case models.TaskQuiz:
		return parseQuizDeadline(resp.Body, c.location)
	default:
		return zero, NewError(CodeParse, fmt.Errorf("unknown task kind: %q", task.Kind))
	}
}

// AddDeadlines resolves due dates for all tasks concurrently
//
// Failures are isolated per task: a task whose page could not be parsed
// keeps its deadline unresolved and may be resolved on a later sync.
func (c *Client) AddDeadlines(ctx context.Context, access models.Token, tasks []models.Task) []models.Task {
	resolved := make([]models.Task, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			dueAt, err := c.ResolveDeadline(ctx, access, task)
			if err != nil {
				c.logger.Warn("Failed to resolve deadline", "task_id", task.ID, "error", err)
				resolved[i] = task
				return nil
			}

			task.DueAt = &dueAt
			resolved[i] = task
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures are kept as unresolved deadlines

	return resolved
}

func (c *Client) viewURL(task models.Task, access models.Token) (string, error) {
	var page string
	switch task.Kind {
	case models.TaskAssignment:
		page = c.viewBaseURL + "/assign/view.php"
	case models.TaskQuiz:
		page = c.viewBaseURL + "/quiz/view.php"
	default:
		return "", NewError(CodeParse, fmt.Errorf("unknown task kind: %q", task.Kind))
	}

	params := url.Values{
		"id":    {strconv.FormatInt(task.ID, 10)},
		"lang":  {"en"},
		"token": {access.Value},
	}

	return page + "?" + params.Encode(), nil
}
