package app

import (
	"sort"
	"time"

	"elearning-quiz-service/internal/domain"
)

// State is the page a session is currently on.
type State string

const (
	StateLogin     State = "login"
	StateDashboard State = "dashboard"
	StateLearning  State = "learning"
	StateQuiz      State = "quiz"
	StateResult    State = "result"
)

// Session is the state of one user's interaction. It is a value: Machine.Apply
// returns a new Session and never mutates the one it was given.
type Session struct {
	State     State
	User      *domain.User
	ThemeKey  string
	StartedAt *time.Time

	// Questions of the active theme, loaded when entering the quiz.
	Questions []domain.Question
	// Answers maps a 1-based question ordinal to whether the chosen option was correct.
	Answers map[int]bool

	Score          *int
	ElapsedMinutes *int
	Passed         bool
	AutoSubmitted  bool
	AttemptID      string

	// Warnings carries best-effort side effect failures of the last event.
	Warnings []string
}

// NewSession returns the initial, pre-login session.
func NewSession() Session {
	return Session{State: StateLogin}
}

// Answered lists the ordinals that have an answer recorded, ascending.
func (s Session) Answered() []int {
	if len(s.Answers) == 0 {
		return nil
	}
	out := make([]int, 0, len(s.Answers))
	for ordinal := range s.Answers {
		out = append(out, ordinal)
	}
	sort.Ints(out)
	return out
}

func (s Session) clone() Session {
	out := s
	if s.Answers != nil {
		out.Answers = make(map[int]bool, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	out.Warnings = nil
	return out
}

// Event is a user action (or a timer poll) fed into Machine.Apply.
type Event interface {
	event()
}

type (
	Login struct {
		Email string
	}
	SelectTheme struct {
		Key string
	}
	StartQuiz       struct{}
	BackToDashboard struct{}
	BackToLearning  struct{}
	Answer          struct {
		Ordinal int // 1-based
		Option  int // 0-based
	}
	Submit struct{}
	// Tick only runs the time limit check.
	Tick   struct{}
	Logout struct{}
)

func (Login) event()           {}
func (SelectTheme) event()     {}
func (StartQuiz) event()       {}
func (BackToDashboard) event() {}
func (BackToLearning) event()  {}
func (Answer) event()          {}
func (Submit) event()          {}
func (Tick) event()            {}
func (Logout) event()          {}
