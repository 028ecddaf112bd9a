// Package provider implements context fetchers for third-party services.
// A provider turns a decrypted access token into a context blob that is
// appended to the model prompt for one task type.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrProviderRequestFailed indicates the upstream service rejected the
// request or was unreachable. The worker treats it as a soft failure and
// continues with whatever context it already has.
var ErrProviderRequestFailed = errors.New("provider request failed")

// ContextProvider fetches supporting context for one task type.
type ContextProvider interface {
	// TaskType returns the task type tag this provider serves.
	TaskType() string

	// CredentialProvider returns the name of the stored OAuth credential
	// this provider needs (e.g. "google", "notion").
	CredentialProvider() string

	// FetchContext retrieves a context blob using the decrypted access
	// token. The returned string is opaque to the caller and is embedded
	// verbatim in the prompt.
	FetchContext(ctx context.Context, accessToken string) (string, error)
}

// Registry maps task type tags to their context providers. Lookups for
// unknown tags fail softly so new task types can be introduced without
// breaking task processing.
type Registry struct {
	providers map[string]ContextProvider
}

// NewRegistry builds a registry from the given providers.
// Registering two providers for the same task type is a programming
// error and panics at startup.
func NewRegistry(providers ...ContextProvider) *Registry {
	r := &Registry{providers: make(map[string]ContextProvider, len(providers))}
	for _, p := range providers {
		if _, exists := r.providers[p.TaskType()]; exists {
			panic(fmt.Sprintf("duplicate context provider for task type %q", p.TaskType()))
		}
		r.providers[p.TaskType()] = p
	}
	return r
}

// Lookup returns the provider for the task type, or false when none is
// registered.
func (r *Registry) Lookup(taskType string) (ContextProvider, bool) {
	p, ok := r.providers[taskType]
	return p, ok
}
