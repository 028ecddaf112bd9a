package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/platform/logger"
	"github.com/cleohq/cleo-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using
// PostgreSQL. Every mutation is a single statement; status transitions
// rely on conditional UPDATEs rather than wrapping transactions, which
// is what makes Claim safe under concurrent redelivery.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresTaskStore{db: db}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
// The status is forced to pending regardless of what the caller set.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, workspace_id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.WorkspaceID,
		task.Type,
		[]byte(task.Payload),
		domain.TaskStatusPending,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"task_type", task.Type,
			"error", err)
		return fmt.Errorf("failed to save task: %w", MapError(err))
	}

	task.Status = domain.TaskStatusPending
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := taskSelectColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetForUser implements store.TaskStore.GetForUser
// Ownership is checked through the workspace join, so a task in someone
// else's workspace is indistinguishable from a missing one.
func (s *PostgresTaskStore) GetForUser(
	ctx context.Context,
	id, userID uuid.UUID,
) (*domain.Task, error) {
	query := `
		SELECT t.id, t.workspace_id, t.type, t.payload, t.status, t.result, t.error_message, t.created_at, t.updated_at
		FROM tasks t
		JOIN workspaces w ON w.id = t.workspace_id
		WHERE t.id = $1 AND w.user_id = $2
	`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Claim implements store.TaskStore.Claim
// The conditional UPDATE is the compare-and-set: only a pending row
// transitions, so at most one delivery of a queue message wins.
func (s *PostgresTaskStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusProcessing,
		time.Now().UTC(),
		id,
		domain.TaskStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim task: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// MarkDone implements store.TaskStore.MarkDone
func (s *PostgresTaskStore) MarkDone(
	ctx context.Context,
	id uuid.UUID,
	result json.RawMessage,
) error {
	query := `
		UPDATE tasks
		SET status = $1, result = $2, error_message = '', updated_at = $3
		WHERE id = $4
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusDone,
		[]byte(result),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark task done: %w", MapError(err))
	}

	if err := CheckRowsAffected(res, "task"); err != nil {
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}
	return nil
}

// MarkError implements store.TaskStore.MarkError
func (s *PostgresTaskStore) MarkError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusError,
		errorMessage,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark task errored: %w", MapError(err))
	}

	if err := CheckRowsAffected(res, "task"); err != nil {
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}
	return nil
}

// GetPending implements store.TaskStore.GetPending
func (s *PostgresTaskStore) GetPending(ctx context.Context) ([]*domain.Task, error) {
	return s.getTasksByStatus(ctx, domain.TaskStatusPending, 0)
}

// GetProcessingOlderThan implements store.TaskStore.GetProcessingOlderThan
func (s *PostgresTaskStore) GetProcessingOlderThan(
	ctx context.Context,
	age time.Duration,
) ([]*domain.Task, error) {
	return s.getTasksByStatus(ctx, domain.TaskStatusProcessing, age)
}

// ResetToPending implements store.TaskStore.ResetToPending
// Only a processing row transitions back, the same CAS discipline as
// Claim in the opposite direction.
func (s *PostgresTaskStore) ResetToPending(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	res, err := s.db.ExecContext(ctx, query,
		domain.TaskStatusPending,
		time.Now().UTC(),
		id,
		domain.TaskStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to reset task to pending: %w", MapError(err))
	}

	if err := CheckRowsAffected(res, "task"); err != nil {
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}
	return nil
}

// getTasksByStatus is a helper method to get tasks by status with an
// optional minimum age filter on updated_at.
func (s *PostgresTaskStore) getTasksByStatus(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []interface{}

	if olderThan > 0 {
		query = taskSelectColumns + `
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []interface{}{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = taskSelectColumns + `
			FROM tasks
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []interface{}{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status", "status", status, "error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

const taskSelectColumns = `
	SELECT id, workspace_id, type, payload, status, result, error_message, created_at, updated_at`

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var payload, result []byte
	var errorMessage sql.NullString

	err := row.Scan(
		&task.ID,
		&task.WorkspaceID,
		&task.Type,
		&payload,
		&task.Status,
		&result,
		&errorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Payload = json.RawMessage(payload)
	if len(result) > 0 {
		task.Result = json.RawMessage(result)
	}
	task.ErrorMessage = errorMessage.String

	return &task, nil
}
