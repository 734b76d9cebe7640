package sqlstore

import (
	"context"
	"fmt"

	"elearning-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// AttemptStore appends attempts to the attempts table.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Append(ctx context.Context, record domain.AttemptRecord) error {
	row := attemptRowFrom(record)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt %s: %w", record.ID, err)
	}
	return nil
}

// List returns attempts oldest first, optionally filtered by email.
func (s *AttemptStore) List(ctx context.Context, email string) ([]domain.AttemptRecord, error) {
	var rows []AttemptRow
	q := s.db.NewSelect().Model(&rows).Order("created_at ASC", "id ASC")
	if email != "" {
		q = q.Where("email = ?", email)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.AttemptRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}
