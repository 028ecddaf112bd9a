package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Provider name constants for stored OAuth credentials.
const (
	ProviderGoogle = "google"
	ProviderNotion = "notion"
	ProviderZoom   = "zoom"
)

// Common validation errors for OAuthCredential
var (
	ErrEmptyCredentialWorkspaceID = errors.New("credential workspace ID cannot be empty")
	ErrEmptyCredentialProvider    = errors.New("credential provider cannot be empty")
	ErrEmptyAccessToken           = errors.New("credential access token cannot be empty")
)

// OAuthCredential holds one workspace's tokens for a third-party provider.
// AccessToken and RefreshToken are ciphertext produced by the vault; the
// plaintext exists only transiently in memory during a task's context-fetch
// step and must never be persisted or logged.
type OAuthCredential struct {
	WorkspaceID  uuid.UUID  `json:"workspace_id"`
	Provider     string     `json:"provider"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewOAuthCredential creates a credential for upsert. Tokens are expected to
// be already encrypted by the caller.
func NewOAuthCredential(
	workspaceID uuid.UUID,
	provider string,
	accessToken string,
	refreshToken string,
	expiresAt *time.Time,
) (*OAuthCredential, error) {
	cred := &OAuthCredential{
		WorkspaceID:  workspaceID,
		Provider:     provider,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		UpdatedAt:    time.Now().UTC(),
	}

	if err := cred.Validate(); err != nil {
		return nil, err
	}

	return cred, nil
}

// Validate checks if the OAuthCredential has valid data.
func (c *OAuthCredential) Validate() error {
	if c.WorkspaceID == uuid.Nil {
		return ErrEmptyCredentialWorkspaceID
	}

	if c.Provider == "" {
		return ErrEmptyCredentialProvider
	}

	if c.AccessToken == "" {
		return ErrEmptyAccessToken
	}

	return nil
}
