package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/queue"
	"github.com/cleohq/cleo-api/internal/store"
)

// mockTaskStore is an in-memory store.TaskStore that mirrors the CAS
// semantics of the real implementation.
type mockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	claimErr    error
	markDoneErr error
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	copied.Status = domain.TaskStatusPending
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *mockTaskStore) GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Task, error) {
	return m.GetByID(ctx, id)
}

func (m *mockTaskStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return false, m.claimErr
	}
	task, ok := m.tasks[id]
	if !ok || task.Status != domain.TaskStatusPending {
		return false, nil
	}
	task.Status = domain.TaskStatusProcessing
	task.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *mockTaskStore) MarkDone(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markDoneErr != nil {
		return m.markDoneErr
	}
	task, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.Status = domain.TaskStatusDone
	task.Result = result
	task.ErrorMessage = ""
	return nil
}

func (m *mockTaskStore) MarkError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.Status = domain.TaskStatusError
	task.ErrorMessage = errorMessage
	return nil
}

func (m *mockTaskStore) GetPending(ctx context.Context) ([]*domain.Task, error) {
	return m.byStatus(domain.TaskStatusPending), nil
}

func (m *mockTaskStore) GetProcessingOlderThan(
	ctx context.Context,
	age time.Duration,
) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-age)
	var out []*domain.Task
	for _, task := range m.tasks {
		if task.Status == domain.TaskStatusProcessing && (age == 0 || task.UpdatedAt.Before(cutoff)) {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockTaskStore) ResetToPending(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.Status != domain.TaskStatusProcessing {
		return store.ErrTaskNotFound
	}
	task.Status = domain.TaskStatusPending
	return nil
}

func (m *mockTaskStore) byStatus(status domain.TaskStatus) []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, task := range m.tasks {
		if task.Status == status {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out
}

// mockWorkspaceStore owns a fixed (workspace, user) mapping.
type mockWorkspaceStore struct {
	workspaces map[uuid.UUID]*domain.Workspace
}

func newMockWorkspaceStore(ws ...*domain.Workspace) *mockWorkspaceStore {
	m := &mockWorkspaceStore{workspaces: make(map[uuid.UUID]*domain.Workspace)}
	for _, w := range ws {
		m.workspaces[w.ID] = w
	}
	return m
}

func (m *mockWorkspaceStore) Create(ctx context.Context, ws *domain.Workspace) error {
	m.workspaces[ws.ID] = ws
	return nil
}

func (m *mockWorkspaceStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Workspace, error) {
	var out []*domain.Workspace
	for _, ws := range m.workspaces {
		if ws.UserID == userID {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (m *mockWorkspaceStore) GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Workspace, error) {
	ws, ok := m.workspaces[id]
	if !ok || ws.UserID != userID {
		return nil, store.ErrWorkspaceNotFound
	}
	return ws, nil
}

func (m *mockWorkspaceStore) UpdateName(ctx context.Context, id, userID uuid.UUID, name string) (*domain.Workspace, error) {
	ws, err := m.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	ws.Name = name
	return ws, nil
}

func (m *mockWorkspaceStore) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := m.GetForUser(ctx, id, userID); err != nil {
		return err
	}
	delete(m.workspaces, id)
	return nil
}

// mockCredentialStore stores credentials keyed by workspace and provider.
type mockCredentialStore struct {
	mu    sync.Mutex
	creds map[uuid.UUID]map[string]*domain.OAuthCredential

	listErr error
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{creds: make(map[uuid.UUID]map[string]*domain.OAuthCredential)}
}

func (m *mockCredentialStore) Upsert(ctx context.Context, cred *domain.OAuthCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byProvider, ok := m.creds[cred.WorkspaceID]
	if !ok {
		byProvider = make(map[string]*domain.OAuthCredential)
		m.creds[cred.WorkspaceID] = byProvider
	}
	// Preserve the stored refresh token when the new one is empty,
	// matching the SQL COALESCE upsert.
	if existing, ok := byProvider[cred.Provider]; ok && cred.RefreshToken == "" {
		cred.RefreshToken = existing.RefreshToken
	}
	copied := *cred
	byProvider[cred.Provider] = &copied
	return nil
}

func (m *mockCredentialStore) ListByWorkspace(
	ctx context.Context,
	workspaceID uuid.UUID,
) ([]*domain.OAuthCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*domain.OAuthCredential
	for _, cred := range m.creds[workspaceID] {
		copied := *cred
		out = append(out, &copied)
	}
	return out, nil
}

// mockQueue records enqueued messages.
type mockQueue struct {
	mu         sync.Mutex
	messages   []queue.Message
	enqueueErr error
}

func (m *mockQueue) Enqueue(ctx context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockQueue) Consume(ctx context.Context, handler queue.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockQueue) Close() error { return nil }

func (m *mockQueue) enqueued() []queue.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]queue.Message(nil), m.messages...)
}

// mockInvoker returns a canned answer and records prompts.
type mockInvoker struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (m *mockInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockInvoker) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// mockUserStore backs auth service tests.
type mockUserStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.User
	byEmail map[string]*domain.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		byID:    make(map[uuid.UUID]*domain.User),
		byEmail: make(map[string]*domain.User),
	}
}

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[user.Email]; exists {
		return store.ErrEmailExists
	}
	// Mirror the real store: hash is opaque here, so just move the
	// plaintext aside.
	if user.Password != "" {
		user.HashedPassword = "hashed:" + user.Password
		user.Password = ""
	}
	copied := *user
	m.byID[user.ID] = &copied
	m.byEmail[user.Email] = &copied
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// mockRefreshTokenStore keeps refresh tokens in memory.
type mockRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenStore() *mockRefreshTokenStore {
	return &mockRefreshTokenStore{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenStore) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *token
	m.tokens[token.Token] = &copied
	return nil
}

func (m *mockRefreshTokenStore) GetValid(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.tokens[token]
	if !ok || !rt.Valid(time.Now().UTC()) {
		return nil, store.ErrRefreshTokenNotFound
	}
	copied := *rt
	return &copied, nil
}

func (m *mockRefreshTokenStore) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.tokens[token]; ok && rt.RevokedAt == nil {
		now := time.Now().UTC()
		rt.RevokedAt = &now
	}
	return nil
}

func (m *mockRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, rt := range m.tokens {
		if rt.UserID == userID && rt.RevokedAt == nil {
			rt.RevokedAt = &now
		}
	}
	return nil
}

// mockPasswordVerifier matches the mockUserStore hashing scheme.
type mockPasswordVerifier struct{}

func (mockPasswordVerifier) Compare(hashedPassword, password string) error {
	if hashedPassword == "hashed:"+password {
		return nil
	}
	return ErrInvalidCredentials
}
