package postgres

import (
	"context"
	"fmt"

	"github.com/cleohq/cleo-api/internal/domain"
	"github.com/cleohq/cleo-api/internal/store"
)

// PostgresSubmissionStore implements the store.SubmissionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSubmissionStore struct {
	db store.DBTX
}

// NewPostgresSubmissionStore creates a new PostgreSQL implementation of
// the SubmissionStore interface.
func NewPostgresSubmissionStore(db store.DBTX) *PostgresSubmissionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresSubmissionStore{db: db}
}

// Ensure PostgresSubmissionStore implements store.SubmissionStore interface
var _ store.SubmissionStore = (*PostgresSubmissionStore)(nil)

// Create implements store.SubmissionStore.Create
func (s *PostgresSubmissionStore) Create(ctx context.Context, sub *domain.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO landing_page_submissions (id, name, email, website, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		sub.ID,
		sub.Name,
		sub.Email,
		sub.Website,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", MapError(err))
	}

	return nil
}

// List implements store.SubmissionStore.List
func (s *PostgresSubmissionStore) List(ctx context.Context) ([]*domain.Submission, error) {
	query := `
		SELECT id, name, email, website, created_at
		FROM landing_page_submissions
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	subs := []*domain.Submission{}
	for rows.Next() {
		var sub domain.Submission
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Website, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}

	return subs, nil
}
