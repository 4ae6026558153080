package models

import (
	"time"
)

// Reminder is the per (task, user) ledger entry
// LastRemindedAt == nil means the user was never reminded of the task
type Reminder struct {
	TaskID         int64
	UserID         int64
	LastRemindedAt *time.Time
	IsActive       bool
}
