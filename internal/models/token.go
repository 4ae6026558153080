package models

import (
	"time"
)

// Token kinds kept in the credential store
const (
	TokenPrimary = "primary" // long-lived ADFS session credential
	TokenAccess  = "access"  // short-lived bearer derived from the primary
)

// Token issued by the external identity provider
// The value is opaque: nothing is signed or verified locally
type Token struct {
	Kind      string
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token is usable at the given moment
func (t Token) Valid(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}
