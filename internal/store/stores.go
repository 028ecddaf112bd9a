package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	// Create saves a new user, hashing the plaintext password before
	// storage. Returns ErrEmailExists if the email is already registered.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by its unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by its normalized email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// WorkspaceStore defines persistence operations for workspaces.
// Every read and write is scoped by the owning user; a workspace that
// belongs to someone else behaves as if it did not exist.
type WorkspaceStore interface {
	Create(ctx context.Context, ws *domain.Workspace) error

	// ListByUser returns the user's workspaces, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error)

	// GetForUser returns the workspace only when it is owned by userID.
	// Returns ErrWorkspaceNotFound otherwise.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Workspace, error)

	// UpdateName renames the workspace when owned by userID.
	// Returns ErrWorkspaceNotFound otherwise.
	UpdateName(ctx context.Context, id, userID uuid.UUID, name string) (*domain.Workspace, error)

	// Delete removes the workspace when owned by userID. Deletion cascades
	// to tasks and oauth credentials at the schema level.
	// Returns ErrWorkspaceNotFound otherwise.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// TaskStore defines persistence operations for AI tasks.
// Each mutation is its own atomic statement; no transaction wraps the
// worker's full processing sequence.
type TaskStore interface {
	// Create inserts the task with status forced to pending.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task regardless of ownership. Used by the worker,
	// which trusts the queue, never by the API layer.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetForUser retrieves a task only when its workspace is owned by
	// userID. Returns ErrTaskNotFound otherwise.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Task, error)

	// Claim atomically transitions the task from pending to processing.
	// It reports false when the task is already processing or terminal,
	// which makes redelivered queue messages harmless.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)

	// MarkDone records the result and sets the terminal done status.
	MarkDone(ctx context.Context, id uuid.UUID, result json.RawMessage) error

	// MarkError records the diagnostic message and sets the terminal error
	// status.
	MarkError(ctx context.Context, id uuid.UUID, errorMessage string) error

	// GetPending returns all pending tasks, oldest first. Used for startup
	// recovery.
	GetPending(ctx context.Context) ([]*domain.Task, error)

	// GetProcessingOlderThan returns tasks stuck in processing longer than
	// the given age. A zero age returns all processing tasks.
	GetProcessingOlderThan(ctx context.Context, age time.Duration) ([]*domain.Task, error)

	// ResetToPending moves a processing task back to pending so it can be
	// requeued after a crash or a stuck-task sweep.
	ResetToPending(ctx context.Context, id uuid.UUID) error
}

// CredentialStore defines persistence operations for encrypted provider
// credentials. Token columns always hold vault ciphertext.
type CredentialStore interface {
	// Upsert inserts or updates the (workspace, provider) row. On conflict
	// the access token and expiry are overwritten while a missing refresh
	// token preserves the previously stored one.
	Upsert(ctx context.Context, cred *domain.OAuthCredential) error

	// ListByWorkspace returns all credentials stored for the workspace.
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*domain.OAuthCredential, error)
}

// RefreshTokenStore defines persistence operations for opaque session
// refresh tokens.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *domain.RefreshToken) error

	// GetValid returns the token only if it is known, unrevoked, and
	// unexpired. Returns ErrRefreshTokenNotFound otherwise.
	GetValid(ctx context.Context, token string) (*domain.RefreshToken, error)

	// Revoke marks the token revoked. Revoking an unknown token is a no-op.
	Revoke(ctx context.Context, token string) error

	// RevokeAllForUser revokes every live token belonging to the user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// SubmissionStore defines persistence operations for landing-page
// submissions.
type SubmissionStore interface {
	Create(ctx context.Context, sub *domain.Submission) error
	List(ctx context.Context) ([]*domain.Submission, error)
}
