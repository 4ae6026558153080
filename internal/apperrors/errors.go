package apperrors

import (
	"errors"
)

var (
	// ErrAuthUnavailable is returned by the token manager when the external
	// authentication flow could not produce a token. Callers must treat it
	// as "try again next cycle", never as fatal.
	ErrAuthUnavailable = errors.New("authentication unavailable")

	// ErrTokenNotFound means no live token of the requested kind is stored
	ErrTokenNotFound = errors.New("token not found")

	ErrUserNotFound = errors.New("user not found")
	ErrTaskNotFound = errors.New("task not found")

	// ErrIntervalTooShort means a remind interval below the configured minimum
	ErrIntervalTooShort = errors.New("remind interval is too short")
)
