package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/platform/vault"
	"github.com/cleohq/cleo-api/internal/provider"
	"github.com/cleohq/cleo-api/internal/queue"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

// stubProvider is a configurable context provider for tests.
type stubProvider struct {
	taskType       string
	credProvider   string
	contextData    string
	err            error
	receivedTokens []string
}

func (p *stubProvider) TaskType() string           { return p.taskType }
func (p *stubProvider) CredentialProvider() string { return p.credProvider }

func (p *stubProvider) FetchContext(ctx context.Context, accessToken string) (string, error) {
	p.receivedTokens = append(p.receivedTokens, accessToken)
	if p.err != nil {
		return "", p.err
	}
	return p.contextData, nil
}

type aiFixture struct {
	service   *AIService
	taskStore *mockTaskStore
	credStore *mockCredentialStore
	queue     *mockQueue
	invoker   *mockInvoker
	vault     *vault.Vault
	user      *domain.User
	workspace *domain.Workspace
	provider  *stubProvider
}

func newAIFixture(t *testing.T) *aiFixture {
	t.Helper()

	v, err := vault.New(testEncryptionKey)
	require.NoError(t, err)

	user := &domain.User{ID: uuid.New()}
	workspace, err := domain.NewWorkspace(user.ID, "Acme")
	require.NoError(t, err)

	stub := &stubProvider{
		taskType:     domain.TaskTypeGmailRead,
		credProvider: domain.ProviderGoogle,
		contextData:  `{"messages":[{"id":"m1"}]}`,
	}

	taskStore := newMockTaskStore()
	credStore := newMockCredentialStore()
	q := &mockQueue{}
	invoker := &mockInvoker{answer: "summarized inbox"}

	svc := NewAIService(
		taskStore,
		newMockWorkspaceStore(workspace),
		credStore,
		q,
		v,
		provider.NewRegistry(stub),
		invoker,
		slog.Default(),
	)

	return &aiFixture{
		service:   svc,
		taskStore: taskStore,
		credStore: credStore,
		queue:     q,
		invoker:   invoker,
		vault:     v,
		user:      user,
		workspace: workspace,
		provider:  stub,
	}
}

// storeCredential encrypts and upserts a credential the way the oauth
// callback would.
func (f *aiFixture) storeCredential(t *testing.T, providerName, plaintextToken string) {
	t.Helper()

	encrypted, err := f.vault.Encrypt(plaintextToken)
	require.NoError(t, err)

	cred, err := domain.NewOAuthCredential(f.workspace.ID, providerName, encrypted, "", nil)
	require.NoError(t, err)
	require.NoError(t, f.credStore.Upsert(context.Background(), cred))
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("persists pending task and enqueues message", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)

		task, err := f.service.CreateTask(
			context.Background(),
			f.user.ID, f.workspace.ID,
			domain.TaskTypeGmailRead,
			json.RawMessage(`{"query":"unread"}`),
		)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, task.Status)

		stored, err := f.taskStore.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, stored.Status)

		msgs := f.queue.enqueued()
		require.Len(t, msgs, 1)
		assert.Equal(t, task.ID, msgs[0].TaskID)
		assert.Equal(t, f.workspace.ID, msgs[0].WorkspaceID)
	})

	t.Run("rejects workspace owned by another user", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)

		_, err := f.service.CreateTask(
			context.Background(),
			uuid.New(), f.workspace.ID,
			domain.TaskTypeGmailRead,
			nil,
		)
		assert.ErrorIs(t, err, ErrNotOwned)
		assert.Empty(t, f.queue.enqueued())
	})

	t.Run("enqueue failure still creates the task", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		f.queue.enqueueErr = errors.New("broker unavailable")

		task, err := f.service.CreateTask(
			context.Background(),
			f.user.ID, f.workspace.ID,
			domain.TaskTypeGmailRead,
			nil,
		)
		require.NoError(t, err)

		stored, err := f.taskStore.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, stored.Status)
	})
}

func createTestTask(t *testing.T, f *aiFixture, taskType string) *domain.Task {
	t.Helper()

	task, err := f.service.CreateTask(
		context.Background(),
		f.user.ID, f.workspace.ID,
		taskType,
		json.RawMessage(`{"query":"unread"}`),
	)
	require.NoError(t, err)
	return task
}

func messageFor(task *domain.Task) queue.Message {
	return queue.Message{
		TaskID:      task.ID,
		WorkspaceID: task.WorkspaceID,
		Type:        task.Type,
		Payload:     task.Payload,
	}
}

func TestProcessMessage(t *testing.T) {
	t.Parallel()

	t.Run("happy path ends done with model result", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		f.storeCredential(t, domain.ProviderGoogle, "plaintext-google-token")
		task := createTestTask(t, f, domain.TaskTypeGmailRead)

		err := f.service.ProcessMessage(context.Background(), messageFor(task))
		require.NoError(t, err)

		stored, err := f.taskStore.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDone, stored.Status)
		assert.JSONEq(t, `{"result":"summarized inbox"}`, string(stored.Result))

		// The provider saw the decrypted token, not ciphertext.
		require.Len(t, f.provider.receivedTokens, 1)
		assert.Equal(t, "plaintext-google-token", f.provider.receivedTokens[0])

		// The prompt carries type, payload, and the fetched context.
		prompt := f.invoker.lastPrompt()
		assert.Contains(t, prompt, "Task: gmail_read")
		assert.Contains(t, prompt, `"query":"unread"`)
		assert.Contains(t, prompt, f.provider.contextData)
	})

	t.Run("undecryptable credential degrades to empty context", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		task := createTestTask(t, f, domain.TaskTypeGmailRead)

		// Store ciphertext produced under a different key, as after a key
		// rotation.
		otherVault, err := vault.New("ffffffffffffffffffffffffffffffff")
		require.NoError(t, err)
		encrypted, err := otherVault.Encrypt("old-token")
		require.NoError(t, err)
		cred, err := domain.NewOAuthCredential(f.workspace.ID, domain.ProviderGoogle, encrypted, "", nil)
		require.NoError(t, err)
		require.NoError(t, f.credStore.Upsert(context.Background(), cred))

		err = f.service.ProcessMessage(context.Background(), messageFor(task))
		require.NoError(t, err)

		stored, err := f.taskStore.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDone, stored.Status)

		assert.Empty(t, f.provider.receivedTokens)
		assert.True(t, strings.HasSuffix(f.invoker.lastPrompt(), "Context Data: "))
	})

	t.Run("provider fetch failure degrades to empty context", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		f.storeCredential(t, domain.ProviderGoogle, "token")
		f.provider.err = provider.ErrProviderRequestFailed
		task := createTestTask(t, f, domain.TaskTypeGmailRead)

		require.NoError(t, f.service.ProcessMessage(context.Background(), messageFor(task)))

		stored, err := f.taskStore.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDone, stored.Status)
	})

	t.Run("unknown task type still terminates", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		task := createTestTask(t, f, "calendar_scan")

		require.NoError(t, f.service.ProcessMessage(context.Background(), messageFor(task)))

		stored, err := f.taskStore.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDone, stored.Status)
	})

	t.Run("model failure ends in error status with message", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		f.invoker.err = errors.New("model overloaded")
		task := createTestTask(t, f, domain.TaskTypeGmailRead)

		require.NoError(t, f.service.ProcessMessage(context.Background(), messageFor(task)))

		stored, err := f.taskStore.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusError, stored.Status)
		assert.Contains(t, stored.ErrorMessage, "model overloaded")
		assert.Empty(t, stored.Result)
	})

	t.Run("redelivered message is skipped after terminal state", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		task := createTestTask(t, f, domain.TaskTypeGmailRead)
		msg := messageFor(task)

		require.NoError(t, f.service.ProcessMessage(context.Background(), msg))
		require.NoError(t, f.service.ProcessMessage(context.Background(), msg))

		// Only the first delivery invoked the model.
		assert.Len(t, f.invoker.prompts, 1)

		stored, err := f.taskStore.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusDone, stored.Status)
	})

	t.Run("claim error is returned for redelivery", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		task := createTestTask(t, f, domain.TaskTypeGmailRead)
		f.taskStore.claimErr = errors.New("connection reset")

		err := f.service.ProcessMessage(context.Background(), messageFor(task))
		require.Error(t, err)
	})

	t.Run("persist failure after success is returned for redelivery", func(t *testing.T) {
		t.Parallel()
		f := newAIFixture(t)
		task := createTestTask(t, f, domain.TaskTypeGmailRead)
		f.taskStore.markDoneErr = errors.New("connection reset")

		err := f.service.ProcessMessage(context.Background(), messageFor(task))
		require.Error(t, err)
	})
}
