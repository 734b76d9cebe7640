package domain

import "time"

// User is a roster entry allowed to log in.
type User struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Theme is a unit of study material plus its quiz.
type Theme struct {
	Key              string `json:"key"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	TimeLimitMinutes int    `json:"timeLimitMinutes"`
	PassingScore     int    `json:"passingScore"`
	Enabled          bool   `json:"enabled"`
	MaterialPath     string `json:"-"`
	QuestionsPath    string `json:"-"`
}

// TimeLimit returns the quiz time limit as a duration.
func (t Theme) TimeLimit() time.Duration {
	return time.Duration(t.TimeLimitMinutes) * time.Minute
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Prompt        string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correct_answer" yaml:"correct_answer"`
}

// QuestionBank is the document shape of a per-theme question file.
type QuestionBank struct {
	Questions []Question `json:"questions" yaml:"questions"`
}

// Outcome is the result of scoring one submission.
type Outcome struct {
	Score          int
	ElapsedMinutes int
	Passed         bool
	Correct        int
	Total          int
	Marks          []bool
}

// AttemptRecord is the persisted, append-only trace of one submission.
type AttemptRecord struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	ThemeKey       string    `json:"themeKey"`
	ThemeTitle     string    `json:"themeTitle"`
	Score          int       `json:"score"`
	ElapsedMinutes int       `json:"elapsedMinutes"`
	Passed         bool      `json:"passed"`
	Marks          []bool    `json:"marks"`
	Memo           string    `json:"memo"`
}

// Mark symbols used when an attempt is written to a tabular store.
const (
	MarkCorrect   = "○"
	MarkIncorrect = "✕"
)

// MarkStrings renders the per-question marks as ○/✕.
func (r AttemptRecord) MarkStrings() []string {
	out := make([]string, len(r.Marks))
	for i, ok := range r.Marks {
		if ok {
			out[i] = MarkCorrect
		} else {
			out[i] = MarkIncorrect
		}
	}
	return out
}

// Delivery is the outcome of sending one message to one recipient.
type Delivery struct {
	Recipient string
	Err       error
}
