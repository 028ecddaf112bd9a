package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleohq/cleo-api/internal/config"
	"github.com/cleohq/cleo-api/internal/service/auth"
	"github.com/cleohq/cleo-api/internal/store"
)

func newAuthService(t *testing.T) (*AuthService, *mockRefreshTokenStore) {
	t.Helper()

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	refreshStore := newMockRefreshTokenStore()
	svc := NewAuthService(
		newMockUserStore(),
		refreshStore,
		jwtService,
		mockPasswordVerifier{},
		slog.Default(),
	)
	return svc, refreshStore
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates user and issues session", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		user, tokens, err := svc.Register(
			context.Background(),
			"Ada", "Ada@Example.com", "super secret pw", "https://example.com")
		require.NoError(t, err)

		assert.Equal(t, "ada@example.com", user.Email)
		assert.Empty(t, user.Password)
		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "super secret pw", "")
		require.NoError(t, err)

		_, _, err = svc.Register(context.Background(), "Eve", "ada@example.com", "another pw 123", "")
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "short", "")
		require.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials issue session", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "super secret pw", "")
		require.NoError(t, err)

		user, tokens, err := svc.Login(context.Background(), "ada@example.com", "super secret pw")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.NotEmpty(t, tokens.RefreshToken)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "super secret pw", "")
		require.NoError(t, err)

		_, _, errWrongPassword := svc.Login(context.Background(), "ada@example.com", "wrong password")
		_, _, errUnknownEmail := svc.Login(context.Background(), "eve@example.com", "super secret pw")

		assert.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("rotates the session token", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, tokens, err := svc.Register(context.Background(), "Ada", "ada@example.com", "super secret pw", "")
		require.NoError(t, err)

		rotated, err := svc.Refresh(context.Background(), tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

		// The original token died in the rotation.
		_, err = svc.Refresh(context.Background(), tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)

		// The rotated token still works.
		_, err = svc.Refresh(context.Background(), rotated.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		t.Parallel()
		svc, _ := newAuthService(t)

		_, err := svc.Refresh(context.Background(), "never-issued")
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)

	_, tokens, err := svc.Register(context.Background(), "Ada", "ada@example.com", "super secret pw", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), tokens.RefreshToken))

	_, err = svc.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Logout is idempotent.
	assert.NoError(t, svc.Logout(context.Background(), tokens.RefreshToken))
}

func TestLogoutAll(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)

	user, first, err := svc.Register(context.Background(), "Ada", "ada@example.com", "super secret pw", "")
	require.NoError(t, err)

	_, second, err := svc.Login(context.Background(), "ada@example.com", "super secret pw")
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(context.Background(), user.ID))

	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = svc.Refresh(context.Background(), second.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
