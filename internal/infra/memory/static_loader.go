package memory

import (
	"context"
	"fmt"

	"elearning-quiz-service/internal/domain"
)

// StaticQuestionLoader serves banks held in memory, keyed by theme.
type StaticQuestionLoader struct {
	banks map[string][]domain.Question
}

func NewStaticQuestionLoader(banks map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{banks: banks}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, themeKey string) ([]domain.Question, error) {
	questions, ok := l.banks[themeKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, themeKey)
	}
	return questions, nil
}
