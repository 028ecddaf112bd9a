package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/service/auth"
	"github.com/cleohq/cleo-api/internal/store"
)

// TokenPair is the result of a successful authentication: a short-lived
// JWT access token and an opaque, revocable refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService handles registration, login, and session lifecycle.
type AuthService struct {
	userStore         store.UserStore
	refreshTokenStore store.RefreshTokenStore
	jwtService        auth.JWTService
	passwordVerifier  auth.PasswordVerifier
	logger            *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userStore store.UserStore,
	refreshTokenStore store.RefreshTokenStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userStore:         userStore,
		refreshTokenStore: refreshTokenStore,
		jwtService:        jwtService,
		passwordVerifier:  passwordVerifier,
		logger:            logger.With("component", "auth_service"),
	}
}

// Register creates a new user account and immediately issues a session.
// Returns store.ErrEmailExists when the email is already registered.
func (s *AuthService) Register(
	ctx context.Context,
	name, email, password, website string,
) (*domain.User, *TokenPair, error) {
	user, err := domain.NewUser(name, email, password, website)
	if err != nil {
		return nil, nil, err
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("registration attempt with existing email", "email", user.Email)
		} else {
			s.logger.Error("failed to create user", "error", err)
		}
		return nil, nil, err
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// GetUser returns the account behind an authenticated session.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userStore.GetByID(ctx, userID)
}

// Login authenticates an email/password pair and issues a session.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user for login", "error", err)
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.passwordVerifier.Compare(user.HashedPassword, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Refresh rotates a session: the presented refresh token is revoked and a
// fresh token pair is issued. A token that is unknown, revoked, or expired
// returns ErrInvalidRefreshToken, so a stolen token can be used at most
// once before rotation invalidates it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	current, err := s.refreshTokenStore.GetValid(ctx, refreshToken)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("failed to look up refresh token", "error", err)
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	user, err := s.userStore.GetByID(ctx, current.UserID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.refreshTokenStore.Revoke(ctx, current.Token); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	tokens, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("session rotated", "user_id", user.ID)
	return tokens, nil
}

// Logout revokes the presented refresh token. Revoking an already dead
// token is a no-op so repeated logouts succeed.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenStore.Revoke(ctx, refreshToken); err != nil {
		s.logger.Error("failed to revoke refresh token on logout", "error", err)
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// LogoutAll revokes every live session belonging to the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshTokenStore.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Error("failed to revoke user sessions", "error", err, "user_id", userID)
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

// issueSession mints an access token and persists a new refresh token.
func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateToken(ctx, user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := domain.NewRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenStore.Create(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
	}, nil
}
