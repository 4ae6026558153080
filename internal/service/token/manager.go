package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/smartlms/remindbot/internal/apperrors"
	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
	"github.com/smartlms/remindbot/internal/repository"
)

type authenticator interface {
	PrimaryToken(ctx context.Context, username string, password string) (models.Token, error)
	AccessToken(ctx context.Context, primary models.Token) (models.Token, error)
}

// Credentials of the single LMS account authenticated on behalf of all users
type Credentials struct {
	Username string
	Password string
}

type Config struct {
	Credentials Credentials
}

// Manager hands out valid tokens of a requested kind: stored unexpired
// tokens are served as is, stale ones are refreshed through the
// authenticator and persisted. Access tokens are derived from the primary
// session token, which itself is cached the same way, so a warm store
// costs zero network calls.
type Manager struct {
	creds  Credentials
	auth   authenticator
	tokens repository.TokenRepo
	logger logger.Logger

	// One refresh in flight per kind, concurrent callers share the result
	group singleflight.Group

	now func() time.Time
}

func New(cfg Config, auth authenticator, tokens repository.TokenRepo, logger logger.Logger) (*Manager, error) {
	if cfg.Credentials.Username == "" || cfg.Credentials.Password == "" {
		return nil, errors.New("account credentials must not be empty")
	}

	return &Manager{
		creds:  cfg.Credentials,
		auth:   auth,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}, nil
}

// GetValidToken returns a token of the kind that is unexpired at call time
//
// Authentication failures of any step surface as apperrors.ErrAuthUnavailable;
// callers must treat it as "try again next cycle". Persistence failures
// propagate as is.
func (m *Manager) GetValidToken(ctx context.Context, kind string) (models.Token, error) {
	var token models.Token

	switch kind {
	case models.TokenPrimary, models.TokenAccess:
	default:
		return token, fmt.Errorf("unknown token kind: %q", kind)
	}

	token, err := m.tokens.GetValid(ctx, kind, m.now())
	if err == nil {
		m.logger.Debug("Stored token is still valid", "kind", kind, "expires_at", token.ExpiresAt)
		return token, nil
	}
	if !errors.Is(err, apperrors.ErrTokenNotFound) {
		return token, err
	}

	v, err, _ := m.group.Do(kind, func() (any, error) {
		return m.refresh(ctx, kind)
	})
	if err != nil {
		return token, err
	}

	return v.(models.Token), nil
}

// refresh re-authenticates and persists the fresh token
func (m *Manager) refresh(ctx context.Context, kind string) (models.Token, error) {
	// A refresh that finished while this call waited is good enough
	if token, err := m.tokens.GetValid(ctx, kind, m.now()); err == nil {
		return token, nil
	}

	m.logger.Info("No valid stored token, re-authenticating", "kind", kind)

	var token models.Token
	var err error

	switch kind {
	case models.TokenPrimary:
		token, err = m.auth.PrimaryToken(ctx, m.creds.Username, m.creds.Password)

	case models.TokenAccess:
		var primary models.Token
		primary, err = m.GetValidToken(ctx, models.TokenPrimary)
		if err != nil {
			return token, err
		}
		token, err = m.auth.AccessToken(ctx, primary)
	}

	if err != nil {
		m.logger.Warn("Authentication failed", "kind", kind, "error", err)
		return token, fmt.Errorf("%w: %v", apperrors.ErrAuthUnavailable, err)
	}

	if err := m.tokens.Save(ctx, token); err != nil {
		return token, fmt.Errorf("failed to save %s token: %w", kind, err)
	}

	m.logger.Info("Token refreshed", "kind", kind, "expires_at", token.ExpiresAt)
	return token, nil
}
