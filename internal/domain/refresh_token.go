package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultRefreshTokenLifetime is how long an issued refresh token stays
// valid unless revoked earlier.
const DefaultRefreshTokenLifetime = 30 * 24 * time.Hour

// Common validation errors for RefreshToken
var (
	ErrEmptyRefreshToken       = errors.New("refresh token cannot be empty")
	ErrEmptyRefreshTokenUserID = errors.New("refresh token user ID cannot be empty")
)

// RefreshToken is an opaque, persisted session token. Unlike access tokens
// it can be revoked server-side.
type RefreshToken struct {
	Token     string     `json:"token"`
	UserID    uuid.UUID  `json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewRefreshToken issues a fresh opaque token for the user with the default
// lifetime.
func NewRefreshToken(userID uuid.UUID) (*RefreshToken, error) {
	if userID == uuid.Nil {
		return nil, ErrEmptyRefreshTokenUserID
	}

	now := time.Now().UTC()
	return &RefreshToken{
		Token:     uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(DefaultRefreshTokenLifetime),
		CreatedAt: now,
	}, nil
}

// Valid reports whether the token is unrevoked and unexpired at the given
// instant.
func (t *RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
