package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/platform/logger"
	"github.com/cleohq/cleo-api/internal/store"
)

// PostgresCredentialStore implements the store.CredentialStore interface
// using a PostgreSQL database as the storage backend. Token columns hold
// vault ciphertext only; this layer never sees plaintext.
type PostgresCredentialStore struct {
	db store.DBTX
}

// NewPostgresCredentialStore creates a new PostgreSQL implementation of the
// CredentialStore interface.
func NewPostgresCredentialStore(db store.DBTX) *PostgresCredentialStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresCredentialStore{db: db}
}

// Ensure PostgresCredentialStore implements store.CredentialStore interface
var _ store.CredentialStore = (*PostgresCredentialStore)(nil)

// Upsert implements store.CredentialStore.Upsert
// On conflict the access token and expiry are always replaced while
// COALESCE keeps the stored refresh token when the new one is absent.
// Providers often return a refresh token only on the first authorization.
func (s *PostgresCredentialStore) Upsert(ctx context.Context, cred *domain.OAuthCredential) error {
	log := logger.FromContext(ctx)

	if err := cred.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO oauth_tokens (workspace_id, provider, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workspace_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), oauth_tokens.refresh_token),
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		cred.WorkspaceID,
		cred.Provider,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to upsert credential",
			"workspace_id", cred.WorkspaceID,
			"provider", cred.Provider,
			"error", err)
		return fmt.Errorf("failed to upsert credential: %w", MapError(err))
	}

	return nil
}

// ListByWorkspace implements store.CredentialStore.ListByWorkspace
func (s *PostgresCredentialStore) ListByWorkspace(
	ctx context.Context,
	workspaceID uuid.UUID,
) ([]*domain.OAuthCredential, error) {
	query := `
		SELECT workspace_id, provider, access_token, refresh_token, expires_at, updated_at
		FROM oauth_tokens
		WHERE workspace_id = $1
		ORDER BY provider ASC
	`

	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	creds := []*domain.OAuthCredential{}
	for rows.Next() {
		var cred domain.OAuthCredential
		var refreshToken sql.NullString
		var expiresAt sql.NullTime

		err := rows.Scan(
			&cred.WorkspaceID,
			&cred.Provider,
			&cred.AccessToken,
			&refreshToken,
			&expiresAt,
			&cred.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}

		cred.RefreshToken = refreshToken.String
		if expiresAt.Valid {
			t := expiresAt.Time
			cred.ExpiresAt = &t
		}
		creds = append(creds, &cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credential rows: %w", err)
	}

	return creds, nil
}
