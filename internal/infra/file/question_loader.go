package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"elearning-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// QuestionLoader reads one question document per theme from disk.
// JSON is the default; .yaml/.yml files are decoded as YAML.
type QuestionLoader struct {
	paths map[string]string
}

func NewQuestionLoader(themes []domain.Theme) *QuestionLoader {
	paths := make(map[string]string, len(themes))
	for _, t := range themes {
		paths[t.Key] = t.QuestionsPath
	}
	return &QuestionLoader{paths: paths}
}

type rawQuestion struct {
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer *int     `json:"correct_answer" yaml:"correct_answer"`
}

type rawBank struct {
	Questions []rawQuestion `json:"questions" yaml:"questions"`
}

func (l *QuestionLoader) LoadQuestions(_ context.Context, themeKey string) ([]domain.Question, error) {
	path, ok := l.paths[themeKey]
	if !ok || path == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrQuizNotFound, themeKey)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuestionLoad, err)
	}
	questions, err := DecodeQuestions(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrQuestionLoad, path, err)
	}
	return questions, nil
}

// DecodeQuestions parses a question document. A question without a
// correct_answer is malformed rather than defaulting to the first option.
func DecodeQuestions(data []byte, ext string) ([]domain.Question, error) {
	var bank rawBank
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &bank); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &bank); err != nil {
			return nil, err
		}
	}

	questions := make([]domain.Question, 0, len(bank.Questions))
	for i, raw := range bank.Questions {
		if raw.CorrectAnswer == nil {
			return nil, fmt.Errorf("%w: question %d has no correct_answer", domain.ErrMalformedQuestion, i+1)
		}
		questions = append(questions, domain.Question{
			Prompt:        raw.Question,
			Options:       raw.Options,
			CorrectAnswer: *raw.CorrectAnswer,
		})
	}
	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}
