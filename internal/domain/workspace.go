package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Workspace
var (
	ErrEmptyWorkspaceID     = errors.New("workspace ID cannot be empty")
	ErrEmptyWorkspaceUserID = errors.New("workspace user ID cannot be empty")
	ErrEmptyWorkspaceName   = errors.New("workspace name cannot be empty")
)

// Workspace is the tenant boundary owning provider credentials and tasks.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkspace creates a new Workspace owned by the given user.
func NewWorkspace(userID uuid.UUID, name string) (*Workspace, error) {
	ws := &Workspace{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := ws.Validate(); err != nil {
		return nil, err
	}

	return ws, nil
}

// Validate checks if the Workspace has valid data.
func (w *Workspace) Validate() error {
	if w.ID == uuid.Nil {
		return ErrEmptyWorkspaceID
	}

	if w.UserID == uuid.Nil {
		return ErrEmptyWorkspaceUserID
	}

	if w.Name == "" {
		return ErrEmptyWorkspaceName
	}

	return nil
}
