package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. It is also returned when an entity exists but does not belong
	// to the requesting user (authorization by absence).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a user with the same email).
	ErrDuplicate = errors.New("entity already exists")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// Entity-specific "not found" errors

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrWorkspaceNotFound indicates that the requested workspace does not
	// exist or is not owned by the requesting user.
	ErrWorkspaceNotFound = fmt.Errorf("%w: workspace", ErrNotFound)

	// ErrTaskNotFound indicates that the requested task does not exist or is
	// not reachable through a workspace the requesting user owns.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrRefreshTokenNotFound indicates that a refresh token is unknown,
	// revoked, or expired.
	ErrRefreshTokenNotFound = fmt.Errorf("%w: refresh token", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrEmailExists indicates that a user with the given email already exists.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
