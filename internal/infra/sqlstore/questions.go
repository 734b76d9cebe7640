package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

// QuestionStore imports question banks and serves them back as a loader.
type QuestionStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewQuestionStore(db *bun.DB) *QuestionStore {
	return &QuestionStore{db: db, now: time.Now}
}

// Save validates questions and upserts them under themeKey.
func (s *QuestionStore) Save(ctx context.Context, themeKey string, questions []domain.Question) error {
	if err := domain.ValidateQuestions(questions); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrQuestionLoad, themeKey, err)
	}
	data, err := json.Marshal(domain.QuestionBank{Questions: questions})
	if err != nil {
		return fmt.Errorf("encode bank %s: %w", themeKey, err)
	}
	row := QuestionBankRow{ThemeKey: themeKey, Data: data, UpdatedAt: s.now().UTC()}
	_, err = s.db.NewInsert().
		Model(&row).
		On("CONFLICT (theme_key) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert bank %s: %w", themeKey, err)
	}
	return nil
}

func (s *QuestionStore) LoadQuestions(ctx context.Context, themeKey string) ([]domain.Question, error) {
	var row QuestionBankRow
	err := s.db.NewSelect().Model(&row).Where("theme_key = ?", themeKey).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, themeKey)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", domain.ErrQuestionLoad, themeKey, err)
	}
	questions, err := domain.ParseQuestionBank(row.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrQuestionLoad, themeKey, err)
	}
	return questions, nil
}

// ThemeKeys lists the themes that have an imported bank.
func (s *QuestionStore) ThemeKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.NewSelect().Model((*QuestionBankRow)(nil)).Column("theme_key").Order("theme_key ASC").Scan(ctx, &keys); err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return keys, nil
}
