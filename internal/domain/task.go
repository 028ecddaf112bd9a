package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the processing state of an AI task.
type TaskStatus string

// Possible task status values. Transitions are monotone:
// pending -> processing -> done|error. done and error are terminal.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusError      TaskStatus = "error"
)

// Known task type tags. Unknown tags are still accepted; they produce an
// empty context blob during processing rather than an error.
const (
	TaskTypeGmailRead  = "gmail_read"
	TaskTypeNotionSync = "notion_sync"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID          = errors.New("task ID cannot be empty")
	ErrEmptyTaskWorkspaceID = errors.New("task workspace ID cannot be empty")
	ErrEmptyTaskType        = errors.New("task type cannot be empty")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
)

// Task represents one unit of asynchronous AI-assisted work tied to a
// workspace. The task row is authoritative for status; queue messages only
// trigger a worker to look up current state.
type Task struct {
	ID           uuid.UUID       `json:"id"`
	WorkspaceID  uuid.UUID       `json:"workspace_id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Status       TaskStatus      `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewTask creates a new Task in the pending state for the given workspace.
// It generates a new UUID for the task ID and sets the timestamps.
// Returns an error if validation fails.
func NewTask(workspaceID uuid.UUID, taskType string, payload json.RawMessage) (*Task, error) {
	if payload == nil {
		payload = json.RawMessage("{}")
	}

	task := &Task{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Type:        taskType,
		Payload:     payload,
		Status:      TaskStatusPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.WorkspaceID == uuid.Nil {
		return ErrEmptyTaskWorkspaceID
	}

	if t.Type == "" {
		return ErrEmptyTaskType
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// IsTerminal reports whether the task has reached a state from which no
// further transition occurs.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusDone || t.Status == TaskStatusError
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusDone, TaskStatusError:
		return true
	default:
		return false
	}
}
