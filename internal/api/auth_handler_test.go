package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleohq/cleo-api/internal/config"
	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/service"
	"github.com/cleohq/cleo-api/internal/service/auth"
	"github.com/cleohq/cleo-api/internal/store"
)

// fakeUserStore hashes with a reversible marker so tests stay fast.
type fakeUserStore struct {
	byEmail map[string]*domain.User
	byID    map[uuid.UUID]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[uuid.UUID]*domain.User),
	}
}

func (f *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	key := strings.ToLower(user.Email)
	if _, ok := f.byEmail[key]; ok {
		return store.ErrEmailExists
	}
	user.HashedPassword = "hashed:" + user.Password
	user.Password = ""
	f.byEmail[key] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

type fakeRefreshTokenStore struct {
	tokens map[string]*domain.RefreshToken
}

func newFakeRefreshTokenStore() *fakeRefreshTokenStore {
	return &fakeRefreshTokenStore{tokens: make(map[string]*domain.RefreshToken)}
}

func (f *fakeRefreshTokenStore) Create(ctx context.Context, token *domain.RefreshToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeRefreshTokenStore) GetValid(ctx context.Context, token string) (*domain.RefreshToken, error) {
	rt, ok := f.tokens[token]
	if !ok || rt.RevokedAt != nil || rt.ExpiresAt.Before(time.Now().UTC()) {
		return nil, store.ErrRefreshTokenNotFound
	}
	return rt, nil
}

func (f *fakeRefreshTokenStore) Revoke(ctx context.Context, token string) error {
	if rt, ok := f.tokens[token]; ok && rt.RevokedAt == nil {
		now := time.Now().UTC()
		rt.RevokedAt = &now
	}
	return nil
}

func (f *fakeRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	now := time.Now().UTC()
	for _, rt := range f.tokens {
		if rt.UserID == userID && rt.RevokedAt == nil {
			rt.RevokedAt = &now
		}
	}
	return nil
}

type markerVerifier struct{}

func (markerVerifier) Compare(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return fmt.Errorf("password mismatch")
	}
	return nil
}

type authHandlerFixture struct {
	handler *AuthHandler
}

func newAuthHandlerFixture(t *testing.T) *authHandlerFixture {
	t.Helper()

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "test-secret-test-secret-test-secret!",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	authService := service.NewAuthService(
		newFakeUserStore(),
		newFakeRefreshTokenStore(),
		jwtService,
		markerVerifier{},
		slog.Default(),
	)
	return &authHandlerFixture{handler: NewAuthHandler(authService)}
}

func (f *authHandlerFixture) post(t *testing.T, handlerFunc http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func (f *authHandlerFixture) register(t *testing.T, email string) AuthResponse {
	t.Helper()

	body := `{"name":"Ada","email":"` + email + `","password":"password123"}`
	rec := f.post(t, f.handler.Register, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthHandlerRegister(t *testing.T) {
	t.Parallel()

	t.Run("returns created user with session tokens", func(t *testing.T) {
		t.Parallel()
		f := newAuthHandlerFixture(t)

		resp := f.register(t, "ada@example.com")
		assert.Equal(t, "Ada", resp.Name)
		assert.Equal(t, "ada@example.com", resp.Email)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.NotEqual(t, uuid.Nil, resp.UserID)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		t.Parallel()
		f := newAuthHandlerFixture(t)
		f.register(t, "ada@example.com")

		body := `{"name":"Ada","email":"ada@example.com","password":"password123"}`
		rec := f.post(t, f.handler.Register, body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password fails validation", func(t *testing.T) {
		t.Parallel()
		f := newAuthHandlerFixture(t)

		body := `{"name":"Ada","email":"ada@example.com","password":"short"}`
		rec := f.post(t, f.handler.Register, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed JSON fails", func(t *testing.T) {
		t.Parallel()
		f := newAuthHandlerFixture(t)

		rec := f.post(t, f.handler.Register, `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials return fresh tokens", func(t *testing.T) {
		t.Parallel()
		f := newAuthHandlerFixture(t)
		registered := f.register(t, "ada@example.com")

		rec := f.post(t, f.handler.Login, `{"email":"ada@example.com","password":"password123"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, registered.UserID, resp.UserID)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		t.Parallel()
		f := newAuthHandlerFixture(t)
		f.register(t, "ada@example.com")

		wrongPassword := f.post(t, f.handler.Login, `{"email":"ada@example.com","password":"nope-nope-nope"}`)
		unknownEmail := f.post(t, f.handler.Login, `{"email":"ghost@example.com","password":"password123"}`)

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
		assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	})
}

func TestAuthHandlerRefresh(t *testing.T) {
	t.Parallel()

	t.Run("rotates the refresh token", func(t *testing.T) {
		t.Parallel()
		f := newAuthHandlerFixture(t)
		registered := f.register(t, "ada@example.com")

		rec := f.post(t, f.handler.Refresh, `{"refresh_token":"`+registered.RefreshToken+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp RefreshTokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEqual(t, registered.RefreshToken, resp.RefreshToken)

		// The rotated-out token is spent.
		replay := f.post(t, f.handler.Refresh, `{"refresh_token":"`+registered.RefreshToken+`"}`)
		assert.Equal(t, http.StatusUnauthorized, replay.Code)
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		t.Parallel()
		f := newAuthHandlerFixture(t)

		rec := f.post(t, f.handler.Refresh, `{"refresh_token":"`+uuid.New().String()+`"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthHandlerLogout(t *testing.T) {
	t.Parallel()

	f := newAuthHandlerFixture(t)
	registered := f.register(t, "ada@example.com")

	rec := f.post(t, f.handler.Logout, `{"refresh_token":"`+registered.RefreshToken+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The revoked token no longer refreshes.
	refresh := f.post(t, f.handler.Refresh, `{"refresh_token":"`+registered.RefreshToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
}
