package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/platform/vault"
	"github.com/cleohq/cleo-api/internal/provider"
	"github.com/cleohq/cleo-api/internal/queue"
	"github.com/cleohq/cleo-api/internal/store"
)

// ModelInvoker produces a completion for a task prompt.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// AIService owns the AI task lifecycle: creation and enqueueing on the
// API side, and the full processing sequence on the worker side.
type AIService struct {
	taskStore       store.TaskStore
	workspaceStore  store.WorkspaceStore
	credentialStore store.CredentialStore
	taskQueue       queue.Queue
	vault           *vault.Vault
	registry        *provider.Registry
	invoker         ModelInvoker
	logger          *slog.Logger
}

// NewAIService creates a new AIService.
func NewAIService(
	taskStore store.TaskStore,
	workspaceStore store.WorkspaceStore,
	credentialStore store.CredentialStore,
	taskQueue queue.Queue,
	v *vault.Vault,
	registry *provider.Registry,
	invoker ModelInvoker,
	logger *slog.Logger,
) *AIService {
	return &AIService{
		taskStore:       taskStore,
		workspaceStore:  workspaceStore,
		credentialStore: credentialStore,
		taskQueue:       taskQueue,
		vault:           v,
		registry:        registry,
		invoker:         invoker,
		logger:          logger.With("component", "ai_service"),
	}
}

// CreateTask persists a pending task for a workspace the user owns and
// enqueues it for processing. The database row is authoritative: if the
// enqueue fails the task stays pending and the recovery sweep requeues
// it, so creation still succeeds.
func (s *AIService) CreateTask(
	ctx context.Context,
	userID, workspaceID uuid.UUID,
	taskType string,
	payload json.RawMessage,
) (*domain.Task, error) {
	if _, err := s.workspaceStore.GetForUser(ctx, workspaceID, userID); err != nil {
		if store.IsNotFoundError(err) {
			// Creation states the ownership violation explicitly; reads
			// elsewhere report missing-or-foreign uniformly as not found.
			return nil, ErrNotOwned
		}
		return nil, err
	}

	task, err := domain.NewTask(workspaceID, taskType, payload)
	if err != nil {
		return nil, err
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := s.taskQueue.Enqueue(ctx, queue.Message{
		TaskID:      task.ID,
		WorkspaceID: task.WorkspaceID,
		Type:        task.Type,
		Payload:     task.Payload,
	}); err != nil {
		s.logger.Warn("failed to enqueue task, leaving it pending for recovery",
			"task_id", task.ID,
			"error", err)
	}

	s.logger.Info("task created",
		"task_id", task.ID,
		"workspace_id", task.WorkspaceID,
		"task_type", task.Type)
	return task, nil
}

// GetTask returns a task when its workspace belongs to the user.
func (s *AIService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	return s.taskStore.GetForUser(ctx, taskID, userID)
}

// Enqueue publishes a queue message for an already persisted task. Used
// by startup recovery and the stuck-task sweep.
func (s *AIService) Enqueue(ctx context.Context, task *domain.Task) error {
	return s.taskQueue.Enqueue(ctx, queue.Message{
		TaskID:      task.ID,
		WorkspaceID: task.WorkspaceID,
		Type:        task.Type,
		Payload:     task.Payload,
	})
}

// ProcessMessage is the worker entry point for one queue delivery. It
// claims the task, fetches provider context, invokes the model, and
// persists the terminal status. A non-nil return means the outcome could
// not be persisted and the delivery should be retried; every processing
// failure that can be recorded ends the task in the error status instead.
func (s *AIService) ProcessMessage(ctx context.Context, msg queue.Message) error {
	log := s.logger.With("task_id", msg.TaskID, "task_type", msg.Type)

	claimed, err := s.taskStore.Claim(ctx, msg.TaskID)
	if err != nil {
		log.Error("failed to claim task", "error", err)
		return fmt.Errorf("failed to claim task %s: %w", msg.TaskID, err)
	}
	if !claimed {
		// Redelivered message for a task that is already processing or
		// finished. Acknowledge and move on.
		log.Debug("task not claimable, skipping delivery")
		return nil
	}

	result, processErr := s.processTask(ctx, msg, log)
	if processErr != nil {
		log.Warn("task processing failed", "error", processErr)
		if err := s.taskStore.MarkError(ctx, msg.TaskID, processErr.Error()); err != nil {
			log.Error("failed to record task error", "error", err)
			return fmt.Errorf("failed to record task error: %w", err)
		}
		return nil
	}

	if err := s.taskStore.MarkDone(ctx, msg.TaskID, result); err != nil {
		log.Error("failed to record task result", "error", err)
		return fmt.Errorf("failed to record task result: %w", err)
	}

	log.Info("task completed")
	return nil
}

// processTask runs the fallible middle of the pipeline: context fetch
// and model invocation. Credential and provider problems degrade to an
// empty context; only model failure aborts the task.
func (s *AIService) processTask(
	ctx context.Context,
	msg queue.Message,
	log *slog.Logger,
) (json.RawMessage, error) {
	contextData := s.fetchContext(ctx, msg, log)

	prompt := fmt.Sprintf("Task: %s\nPayload: %s\nContext Data: %s",
		msg.Type, string(msg.Payload), contextData)

	answer, err := s.invoker.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}

	result, err := json.Marshal(map[string]string{"result": answer})
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return result, nil
}

// fetchContext resolves the task type to a context provider, decrypts the
// workspace's matching credential, and fetches the context blob. Every
// failure here is soft: the task proceeds with an empty context.
func (s *AIService) fetchContext(ctx context.Context, msg queue.Message, log *slog.Logger) string {
	p, ok := s.registry.Lookup(msg.Type)
	if !ok {
		log.Debug("no context provider for task type")
		return ""
	}

	creds, err := s.credentialStore.ListByWorkspace(ctx, msg.WorkspaceID)
	if err != nil {
		log.Warn("failed to load workspace credentials, continuing without context", "error", err)
		return ""
	}

	var encrypted string
	for _, cred := range creds {
		if cred.Provider == p.CredentialProvider() {
			encrypted = cred.AccessToken
			break
		}
	}
	if encrypted == "" {
		log.Debug("workspace has no credential for provider",
			"provider", p.CredentialProvider())
		return ""
	}

	accessToken, err := s.vault.Decrypt(encrypted)
	if err != nil {
		// Likely an encryption key rotation without re-connecting the
		// provider. The credential is unusable but the task can still run.
		log.Warn("failed to decrypt credential, continuing without context",
			"provider", p.CredentialProvider(),
			"error", err)
		return ""
	}

	contextData, err := p.FetchContext(ctx, accessToken)
	if err != nil {
		log.Warn("context fetch failed, continuing without context",
			"provider", p.CredentialProvider(),
			"error", err)
		return ""
	}

	return contextData
}
