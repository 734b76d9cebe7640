package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Roster authenticates users by email.
type Roster interface {
	Lookup(email string) (domain.User, error)
}

// QuestionBank loads the validated, ordered questions of a theme.
type QuestionBank interface {
	Questions(ctx context.Context, themeKey string) ([]domain.Question, error)
}

// ResultSink appends attempt records to a durable log.
type ResultSink interface {
	Append(ctx context.Context, record domain.AttemptRecord) error
}

// Notifier sends one message per recipient and reports each delivery.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string) []domain.Delivery
}

// Deps are the collaborators of a Machine.
type Deps struct {
	Roster     Roster
	Questions  QuestionBank
	Dispatcher *Dispatcher
	Themes     []domain.Theme
	Policy     NotificationPolicy
	Logger     logrus.FieldLogger
}

// Machine drives sessions through Login → Dashboard → Learning → Quiz → Result.
// It holds no session state itself and is safe for concurrent use.
type Machine struct {
	roster     Roster
	questions  QuestionBank
	dispatcher *Dispatcher
	themes     map[string]domain.Theme
	order      []string
	policy     NotificationPolicy
	log        logrus.FieldLogger
	now        func() time.Time
	newID      func() string
}

func NewMachine(deps Deps) *Machine {
	return NewMachineWithClock(deps, time.Now)
}

// NewMachineWithClock allows deterministic timestamps in tests.
func NewMachineWithClock(deps Deps, now func() time.Time) *Machine {
	m := &Machine{
		roster:     deps.Roster,
		questions:  deps.Questions,
		dispatcher: deps.Dispatcher,
		themes:     make(map[string]domain.Theme, len(deps.Themes)),
		policy:     deps.Policy,
		log:        deps.Logger,
		now:        now,
		newID:      uuid.NewString,
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	for _, theme := range deps.Themes {
		if _, dup := m.themes[theme.Key]; dup {
			continue
		}
		m.themes[theme.Key] = theme
		m.order = append(m.order, theme.Key)
	}
	return m
}

// EnabledThemes lists the themes a user may select, in configuration order.
func (m *Machine) EnabledThemes() []domain.Theme {
	out := make([]domain.Theme, 0, len(m.order))
	for _, key := range m.order {
		if theme := m.themes[key]; theme.Enabled {
			out = append(out, theme)
		}
	}
	return out
}

// Theme returns a configured theme by key.
func (m *Machine) Theme(key string) (domain.Theme, bool) {
	theme, ok := m.themes[key]
	return theme, ok
}

// Remaining returns the quiz time left for the session, never negative.
func (m *Machine) Remaining(s Session) time.Duration {
	if s.StartedAt == nil || (s.State != StateLearning && s.State != StateQuiz) {
		return 0
	}
	theme, ok := m.themes[s.ThemeKey]
	if !ok {
		return 0
	}
	left := theme.TimeLimit() - m.now().Sub(*s.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Apply feeds one event into the session and returns the next session. On a
// rejected event the returned session equals the input and err says why.
// Side effects happen only after the new state is final.
func (m *Machine) Apply(ctx context.Context, s Session, ev Event) (Session, error) {
	now := m.now()

	// Time limit is polled on every interaction; expiry wins over the event.
	if s.State == StateQuiz && m.expired(s, now) {
		next := m.submit(ctx, s.clone(), now, true)
		if _, ok := ev.(Logout); ok {
			return NewSession(), nil
		}
		return next, nil
	}

	next, err := m.transition(ctx, s, ev, now)
	if err != nil {
		return s, err
	}
	if next.State == StateQuiz && m.expired(next, now) {
		next = m.submit(ctx, next, now, true)
	}
	return next, nil
}

func (m *Machine) transition(ctx context.Context, s Session, ev Event, now time.Time) (Session, error) {
	switch e := ev.(type) {
	case Logout:
		return NewSession(), nil
	case Tick:
		return s.clone(), nil
	case Login:
		if s.State != StateLogin {
			break
		}
		return m.login(e.Email)
	case SelectTheme:
		if s.State != StateDashboard {
			break
		}
		return m.selectTheme(ctx, s, e.Key, now)
	case StartQuiz:
		if s.State != StateLearning {
			break
		}
		return m.startQuiz(ctx, s)
	case BackToDashboard:
		if s.State != StateLearning && s.State != StateResult {
			break
		}
		return dashboard(s.User), nil
	case BackToLearning:
		if s.State != StateQuiz {
			break
		}
		next := s.clone()
		next.State = StateLearning
		return next, nil
	case Answer:
		if s.State != StateQuiz {
			break
		}
		return recordAnswer(s, e)
	case Submit:
		if s.State != StateQuiz {
			break
		}
		return m.submit(ctx, s.clone(), now, false), nil
	}
	return s, fmt.Errorf("%w: %T in state %s", domain.ErrInvalidTransition, ev, s.State)
}

func (m *Machine) login(email string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return NewSession(), domain.ErrEmailRequired
	}
	user, err := m.roster.Lookup(email)
	if err != nil {
		if !errors.Is(err, domain.ErrAuthentication) {
			err = fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
		}
		m.log.WithField("user", email).Info("login rejected")
		return NewSession(), err
	}
	m.log.WithField("user", user.Email).Info("user logged in")
	return dashboard(&user), nil
}

func (m *Machine) selectTheme(ctx context.Context, s Session, key string, now time.Time) (Session, error) {
	theme, ok := m.themes[key]
	if !ok {
		return s, fmt.Errorf("%w: %q", domain.ErrThemeNotFound, key)
	}
	if !theme.Enabled {
		return s, fmt.Errorf("%w: %q", domain.ErrThemeDisabled, key)
	}

	next := dashboard(s.User)
	next.State = StateLearning
	next.ThemeKey = key
	started := now
	next.StartedAt = &started

	if notices := m.policy.StartNotices(*s.User, theme, now); len(notices) > 0 {
		next.Warnings = m.dispatcher.Dispatch(ctx, Effects{Notices: notices}).Warnings()
	}
	return next, nil
}

func (m *Machine) startQuiz(ctx context.Context, s Session) (Session, error) {
	next := s.clone()
	if len(next.Questions) == 0 {
		questions, err := m.questions.Questions(ctx, s.ThemeKey)
		if err != nil {
			if !errors.Is(err, domain.ErrQuestionLoad) {
				err = fmt.Errorf("%w: %v", domain.ErrQuestionLoad, err)
			}
			m.log.WithField("theme", s.ThemeKey).WithError(err).Warn("question bank unavailable")
			return s, err
		}
		if len(questions) == 0 {
			return s, fmt.Errorf("%w: theme %q has no questions", domain.ErrQuestionLoad, s.ThemeKey)
		}
		next.Questions = questions
	}
	next.State = StateQuiz
	return next, nil
}

func recordAnswer(s Session, a Answer) (Session, error) {
	if a.Ordinal < 1 || a.Ordinal > len(s.Questions) {
		return s, fmt.Errorf("%w: question %d of %d", domain.ErrAnswerOutOfRange, a.Ordinal, len(s.Questions))
	}
	q := s.Questions[a.Ordinal-1]
	if a.Option < 0 || a.Option >= len(q.Options) {
		return s, fmt.Errorf("%w: option %d of %d", domain.ErrAnswerOutOfRange, a.Option, len(q.Options))
	}
	next := s.clone()
	if next.Answers == nil {
		next.Answers = make(map[int]bool, len(s.Questions))
	}
	next.Answers[a.Ordinal] = a.Option == q.CorrectAnswer
	return next, nil
}

// submit scores the quiz and moves to Result. The transition is final before
// any side effect runs; side effect failures only add warnings.
func (m *Machine) submit(ctx context.Context, s Session, now time.Time, auto bool) Session {
	theme := m.themes[s.ThemeKey]
	outcome, err := Score(theme, s.Questions, s.Answers, *s.StartedAt, now)
	if err != nil {
		// StartQuiz refuses empty banks, so this cannot happen for a session in Quiz.
		m.log.WithField("theme", s.ThemeKey).WithError(err).Error("scoring failed")
		s.Warnings = []string{err.Error()}
		return s
	}

	s.State = StateResult
	s.Score = &outcome.Score
	s.ElapsedMinutes = &outcome.ElapsedMinutes
	s.Passed = outcome.Passed
	s.AutoSubmitted = auto
	s.AttemptID = m.newID()

	record := domain.AttemptRecord{
		ID:             s.AttemptID,
		Timestamp:      now,
		Email:          s.User.Email,
		Name:           s.User.DisplayName,
		ThemeKey:       theme.Key,
		ThemeTitle:     theme.Title,
		Score:          outcome.Score,
		ElapsedMinutes: outcome.ElapsedMinutes,
		Passed:         outcome.Passed,
		Marks:          outcome.Marks,
	}
	m.log.WithFields(logrus.Fields{
		"attempt": record.ID,
		"user":    record.Email,
		"theme":   record.ThemeKey,
		"score":   record.Score,
		"passed":  record.Passed,
		"auto":    auto,
	}).Info("quiz submitted")

	report := m.dispatcher.Dispatch(ctx, Effects{
		Attempt: &record,
		Notices: m.policy.SubmissionNotices(*s.User, theme, outcome),
	})
	s.Warnings = report.Warnings()
	return s
}

func (m *Machine) expired(s Session, now time.Time) bool {
	if s.StartedAt == nil {
		return false
	}
	theme, ok := m.themes[s.ThemeKey]
	if !ok {
		return false
	}
	return now.Sub(*s.StartedAt) >= theme.TimeLimit()
}

func dashboard(user *domain.User) Session {
	return Session{State: StateDashboard, User: user}
}
