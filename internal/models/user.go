package models

import (
	"time"
)

// DefaultRemindInterval is used for users that never changed it
const DefaultRemindInterval = 24 * time.Hour

// User is a chat user registered on first interaction
// ID is the external chat identity, users are never deleted
type User struct {
	ID             int64
	IsActive       bool
	RemindInterval time.Duration
	CreatedAt      time.Time
}
