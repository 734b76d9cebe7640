package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseQuestionBank decodes a stored `{"questions": [...]}` document and validates it.
func ParseQuestionBank(data []byte) ([]Question, error) {
	var bank QuestionBank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("%w: decode bank: %v", ErrMalformedQuestion, err)
	}
	if err := ValidateQuestions(bank.Questions); err != nil {
		return nil, err
	}
	return bank.Questions, nil
}

// ValidateQuestions rejects the whole bank if any entry could lead to an illegal scoring state.
func ValidateQuestions(questions []Question) error {
	for i, q := range questions {
		ordinal := i + 1
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("%w: question %d has no prompt", ErrMalformedQuestion, ordinal)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least 2 options, got %d", ErrMalformedQuestion, ordinal, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct_answer %d out of range [0,%d)", ErrMalformedQuestion, ordinal, q.CorrectAnswer, len(q.Options))
		}
	}
	return nil
}
