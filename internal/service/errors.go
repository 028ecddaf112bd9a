// Package service provides application-level services for authentication,
// workspace management, OAuth credential capture, and AI task processing.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is(); the API layer maps each one to an
// HTTP status code.
var (
	// ErrInvalidCredentials indicates a login attempt with an unknown email
	// or wrong password. Deliberately indistinguishable between the two.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRefreshToken indicates a refresh or logout attempt with an
	// unknown, revoked, or expired session token.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrNotOwned indicates a resource is owned by a different user than
	// the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrUnknownProvider indicates an OAuth flow was requested for a
	// provider this deployment does not support.
	// API layer should map this to HTTP 400 Bad Request.
	ErrUnknownProvider = errors.New("unknown oauth provider")
)
