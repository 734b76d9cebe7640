package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigLoad is fatal: the process cannot serve sessions without configuration or roster.
	ErrConfigLoad = errors.New("config load failed")
	// ErrAuthentication is returned when a login attempt is rejected.
	ErrAuthentication = errors.New("authentication failed")
	// ErrQuestionLoad blocks entering the quiz for a theme.
	ErrQuestionLoad = errors.New("question load failed")
	// ErrInvalidTransition indicates a guard violation; the session is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrPersistence wraps result sink failures. Never fatal.
	ErrPersistence = errors.New("persistence failed")
	// ErrNotification wraps notifier failures. Never fatal.
	ErrNotification = errors.New("notification failed")
	// ErrEmptyQuestionBank means a score cannot be computed.
	ErrEmptyQuestionBank = errors.New("question bank is empty")
)

var (
	ErrUserNotFound      = fmt.Errorf("%w: email is not registered", ErrAuthentication)
	ErrEmailRequired     = fmt.Errorf("%w: email is required", ErrAuthentication)
	ErrQuizNotFound      = fmt.Errorf("%w: quiz not found", ErrQuestionLoad)
	ErrMalformedQuestion = fmt.Errorf("%w: malformed question", ErrQuestionLoad)
	ErrThemeNotFound     = fmt.Errorf("%w: theme not found", ErrInvalidTransition)
	ErrThemeDisabled     = fmt.Errorf("%w: theme is disabled", ErrInvalidTransition)
	ErrAnswerOutOfRange  = fmt.Errorf("%w: answer out of range", ErrInvalidTransition)
)

// Kind classifies an error for user-facing messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigLoad):
		return "config"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrQuestionLoad):
		return "questionLoad"
	case errors.Is(err, ErrInvalidTransition):
		return "invalidTransition"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrNotification):
		return "notification"
	default:
		return "internal"
	}
}
