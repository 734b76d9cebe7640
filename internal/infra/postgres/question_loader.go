package postgres

import (
	"context"
	"errors"
	"fmt"

	"elearning-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads question bank JSONB from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, themeKey string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE theme_key=$1`, themeKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, themeKey)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", domain.ErrQuestionLoad, themeKey, err)
	}
	questions, err := domain.ParseQuestionBank(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrQuestionLoad, themeKey, err)
	}
	return questions, nil
}
