package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the invoker is constructed with
	// missing or invalid configuration.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrEmptyPrompt is returned when an invocation is attempted with an
	// empty prompt.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidResponse is returned when the model responds with no
	// usable content. Not retried.
	ErrInvalidResponse = errors.New("invalid gemini response")

	// ErrContentBlocked is returned when the model refuses the prompt on
	// safety grounds. Not retried.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned when the API keeps failing after
	// all retry attempts.
	ErrTransientFailure = errors.New("transient gemini failure")
)
