package http

import (
	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/domain"
)

// SessionView is what a client sees of a session. Correct answers never leave the server.
type SessionView struct {
	State            app.State      `json:"state"`
	User             *domain.User   `json:"user,omitempty"`
	Themes           []domain.Theme `json:"themes,omitempty"`
	Theme            *domain.Theme  `json:"theme,omitempty"`
	Questions        []QuestionView `json:"questions,omitempty"`
	Answered         []int          `json:"answered,omitempty"`
	RemainingSeconds int            `json:"remainingSeconds,omitempty"`
	Score            *int           `json:"score,omitempty"`
	ElapsedMinutes   *int           `json:"elapsedMinutes,omitempty"`
	Passed           bool           `json:"passed,omitempty"`
	AutoSubmitted    bool           `json:"autoSubmitted,omitempty"`
	AttemptID        string         `json:"attemptId,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
}

type QuestionView struct {
	Ordinal int      `json:"ordinal"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

func buildView(m *app.Machine, s app.Session) SessionView {
	v := SessionView{
		State:          s.State,
		User:           s.User,
		Score:          s.Score,
		ElapsedMinutes: s.ElapsedMinutes,
		AttemptID:      s.AttemptID,
		Warnings:       s.Warnings,
	}
	if s.State == app.StateDashboard {
		v.Themes = m.EnabledThemes()
	}
	if theme, ok := m.Theme(s.ThemeKey); ok {
		v.Theme = &theme
	}
	switch s.State {
	case app.StateLearning, app.StateQuiz:
		v.RemainingSeconds = int(m.Remaining(s).Seconds())
	case app.StateResult:
		v.Passed = s.Passed
		v.AutoSubmitted = s.AutoSubmitted
	}
	if s.State == app.StateQuiz {
		v.Questions = make([]QuestionView, len(s.Questions))
		for i, q := range s.Questions {
			v.Questions[i] = QuestionView{Ordinal: i + 1, Prompt: q.Prompt, Options: q.Options}
		}
		v.Answered = s.Answered()
	}
	return v
}
