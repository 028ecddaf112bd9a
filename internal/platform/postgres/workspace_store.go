package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/platform/logger"
	"github.com/cleohq/cleo-api/internal/store"
)

// PostgresWorkspaceStore implements the store.WorkspaceStore interface
// using a PostgreSQL database as the storage backend. Every statement
// filters on user_id so a workspace owned by someone else behaves as if
// it did not exist.
type PostgresWorkspaceStore struct {
	db store.DBTX
}

// NewPostgresWorkspaceStore creates a new PostgreSQL implementation of the
// WorkspaceStore interface.
func NewPostgresWorkspaceStore(db store.DBTX) *PostgresWorkspaceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresWorkspaceStore{db: db}
}

// Ensure PostgresWorkspaceStore implements store.WorkspaceStore interface
var _ store.WorkspaceStore = (*PostgresWorkspaceStore)(nil)

// Create implements store.WorkspaceStore.Create
func (s *PostgresWorkspaceStore) Create(ctx context.Context, ws *domain.Workspace) error {
	log := logger.FromContext(ctx)

	if err := ws.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO workspaces (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		ws.ID,
		ws.UserID,
		ws.Name,
		ws.CreatedAt,
		ws.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create workspace",
			"workspace_id", ws.ID,
			"user_id", ws.UserID,
			"error", err)
		return fmt.Errorf("failed to create workspace: %w", MapError(err))
	}

	return nil
}

// ListByUser implements store.WorkspaceStore.ListByUser
func (s *PostgresWorkspaceStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Workspace, error) {
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM workspaces
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	workspaces := []*domain.Workspace{}
	for rows.Next() {
		var ws domain.Workspace
		if err := rows.Scan(&ws.ID, &ws.UserID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace row: %w", err)
		}
		workspaces = append(workspaces, &ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspace rows: %w", err)
	}

	return workspaces, nil
}

// GetForUser implements store.WorkspaceStore.GetForUser
func (s *PostgresWorkspaceStore) GetForUser(
	ctx context.Context,
	id, userID uuid.UUID,
) (*domain.Workspace, error) {
	query := `
		SELECT id, user_id, name, created_at, updated_at
		FROM workspaces
		WHERE id = $1 AND user_id = $2
	`

	var ws domain.Workspace
	err := s.db.QueryRowContext(ctx, query, id, userID).
		Scan(&ws.ID, &ws.UserID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, fmt.Errorf("%w: %v", store.ErrWorkspaceNotFound, err)
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return &ws, nil
}

// UpdateName implements store.WorkspaceStore.UpdateName
func (s *PostgresWorkspaceStore) UpdateName(
	ctx context.Context,
	id, userID uuid.UUID,
	name string,
) (*domain.Workspace, error) {
	if name == "" {
		return nil, domain.ErrEmptyWorkspaceName
	}

	query := `
		UPDATE workspaces
		SET name = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
		RETURNING id, user_id, name, created_at, updated_at
	`

	var ws domain.Workspace
	err := s.db.QueryRowContext(ctx, query, name, time.Now().UTC(), id, userID).
		Scan(&ws.ID, &ws.UserID, &ws.Name, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, fmt.Errorf("%w: %v", store.ErrWorkspaceNotFound, err)
		}
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}

	return &ws, nil
}

// Delete implements store.WorkspaceStore.Delete
// Tasks and oauth credentials under the workspace are removed by the
// schema's ON DELETE CASCADE.
func (s *PostgresWorkspaceStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM workspaces WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, "workspace"); err != nil {
		return fmt.Errorf("%w: %v", store.ErrWorkspaceNotFound, err)
	}

	return nil
}
