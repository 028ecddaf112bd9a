package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/store"
)

// PostgresRefreshTokenStore implements the store.RefreshTokenStore
// interface using a PostgreSQL database as the storage backend.
type PostgresRefreshTokenStore struct {
	db store.DBTX
}

// NewPostgresRefreshTokenStore creates a new PostgreSQL implementation of
// the RefreshTokenStore interface.
func NewPostgresRefreshTokenStore(db store.DBTX) *PostgresRefreshTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresRefreshTokenStore{db: db}
}

// Ensure PostgresRefreshTokenStore implements store.RefreshTokenStore interface
var _ store.RefreshTokenStore = (*PostgresRefreshTokenStore)(nil)

// Create implements store.RefreshTokenStore.Create
func (s *PostgresRefreshTokenStore) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id, expires_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		token.Token,
		token.UserID,
		token.ExpiresAt,
		token.RevokedAt,
		token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", MapError(err))
	}

	return nil
}

// GetValid implements store.RefreshTokenStore.GetValid
// Validity is enforced in the WHERE clause so a revoked or expired token
// is indistinguishable from an unknown one.
func (s *PostgresRefreshTokenStore) GetValid(
	ctx context.Context,
	token string,
) (*domain.RefreshToken, error) {
	query := `
		SELECT token, user_id, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2
	`

	var rt domain.RefreshToken
	var revokedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, token, time.Now().UTC()).
		Scan(&rt.Token, &rt.UserID, &rt.ExpiresAt, &revokedAt, &rt.CreatedAt)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, fmt.Errorf("%w: %v", store.ErrRefreshTokenNotFound, err)
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if revokedAt.Valid {
		t := revokedAt.Time
		rt.RevokedAt = &t
	}

	return &rt, nil
}

// Revoke implements store.RefreshTokenStore.Revoke
// Revoking an unknown or already revoked token is a no-op so logout is
// idempotent.
func (s *PostgresRefreshTokenStore) Revoke(ctx context.Context, token string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE token = $2 AND revoked_at IS NULL
	`

	_, err := s.db.ExecContext(ctx, query, time.Now().UTC(), token)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", MapError(err))
	}

	return nil
}

// RevokeAllForUser implements store.RefreshTokenStore.RevokeAllForUser
func (s *PostgresRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL
	`

	_, err := s.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to revoke user refresh tokens: %w", MapError(err))
	}

	return nil
}
