package postgres

import (
	"errors"
	"fmt"
	"time"

	"context"

	"github.com/jackc/pgx/v5"

	"github.com/smartlms/remindbot/internal/apperrors"
	"github.com/smartlms/remindbot/internal/models"
)

type TokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveToken
INSERT INTO tokens (kind, value, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (kind) DO UPDATE
SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
`

// Save token by kind
// Tokens are superseded, never mutated: at most one live row per kind
func (r *TokenRepo) Save(ctx context.Context, token models.Token) error {
	_, err := r.DB.Exec(ctx, saveToken, token.Kind, token.Value, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const getValidToken = `-- name: GetValidToken
SELECT kind, value, expires_at FROM tokens
WHERE kind = $1 AND expires_at > $2
`

// Get a token of the kind that is still valid after 'now'
// Expired and missing tokens look the same to the caller: not found
func (r *TokenRepo) GetValid(ctx context.Context, kind string, now time.Time) (models.Token, error) {
	rows, _ := r.DB.Query(ctx, getValidToken, kind, now)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

func rowToToken(row pgx.CollectableRow) (models.Token, error) {
	var t models.Token
	err := row.Scan(&t.Kind, &t.Value, &t.ExpiresAt)
	return t, err
}
