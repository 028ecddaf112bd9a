package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Submission
var (
	ErrEmptySubmissionName  = errors.New("submission name cannot be empty")
	ErrInvalidSubmissionURL = errors.New("submission website must be a valid URL")
)

// Submission is a landing-page form capture.
type Submission struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSubmission creates a landing-page submission record.
func NewSubmission(name, email, website string) (*Submission, error) {
	sub := &Submission{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Website:   website,
		CreatedAt: time.Now().UTC(),
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}

	return sub, nil
}

// Validate checks if the Submission has valid data.
func (s *Submission) Validate() error {
	if s.Name == "" {
		return ErrEmptySubmissionName
	}

	if _, err := mail.ParseAddress(s.Email); err != nil {
		return ErrInvalidEmail
	}

	return nil
}
