package models

import (
	"time"
)

// Task kinds as the LMS names them
const (
	TaskQuiz       = "quiz"
	TaskAssignment = "assign"
)

// Task is a deadline-bearing LMS item
// ID is the external system's identifier and is stable across refreshes
type Task struct {
	ID    int64
	Name  string
	Kind  string
	DueAt *time.Time // nil until the deadline is resolved
}

// DueAfter reports whether the task has a known deadline later than now
func (t Task) DueAfter(now time.Time) bool {
	return t.DueAt != nil && t.DueAt.After(now)
}
