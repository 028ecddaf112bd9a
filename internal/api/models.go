package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,max=200"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Website  string `json:"website"  validate:"omitempty,url"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
}

// RefreshTokenRequest defines the payload for the token refresh and
// logout endpoints.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token
// refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CreateWorkspaceRequest defines the payload for workspace creation.
type CreateWorkspaceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// UpdateWorkspaceRequest defines the payload for workspace renaming.
type UpdateWorkspaceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// WorkspaceResponse is the wire representation of a workspace.
type WorkspaceResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkspaceResponse converts a domain workspace for the wire.
func NewWorkspaceResponse(ws *domain.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:        ws.ID,
		Name:      ws.Name,
		CreatedAt: ws.CreatedAt,
		UpdatedAt: ws.UpdatedAt,
	}
}

// CreateTaskRequest defines the payload for AI task creation.
type CreateTaskRequest struct {
	WorkspaceID uuid.UUID       `json:"workspace_id" validate:"required"`
	Type        string          `json:"type"         validate:"required,max=100"`
	Payload     json.RawMessage `json:"payload"`
}

// TaskResponse is the wire representation of an AI task. Result and
// ErrorMessage are populated only in the corresponding terminal states.
type TaskResponse struct {
	ID           uuid.UUID       `json:"id"`
	WorkspaceID  uuid.UUID       `json:"workspace_id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewTaskResponse converts a domain task for the wire.
func NewTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           task.ID,
		WorkspaceID:  task.WorkspaceID,
		Type:         task.Type,
		Status:       string(task.Status),
		Payload:      task.Payload,
		Result:       task.Result,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// ConnectResponse carries the provider consent URL for the OAuth flow.
type ConnectResponse struct {
	AuthURL string `json:"auth_url"`
}

// ConnectionResponse reports one connected provider for a workspace.
// Token material is deliberately absent.
type ConnectionResponse struct {
	Provider  string     `json:"provider"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SubmissionRequest defines the payload for the landing page capture
// endpoint.
type SubmissionRequest struct {
	Name    string `json:"name"    validate:"required,max=200"`
	Email   string `json:"email"   validate:"required,email"`
	Website string `json:"website" validate:"omitempty,url"`
}

// SubmissionResponse is the wire representation of a landing page
// submission.
type SubmissionResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserResponse is the wire representation of the authenticated user.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
