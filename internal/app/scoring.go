package app

import (
	"time"

	"elearning-quiz-service/internal/domain"
)

// Score computes the outcome of a submission. Ordinals missing from answers
// count as incorrect. The result depends only on its arguments.
func Score(theme domain.Theme, questions []domain.Question, answers map[int]bool, startedAt, now time.Time) (domain.Outcome, error) {
	n := len(questions)
	if n == 0 {
		return domain.Outcome{}, domain.ErrEmptyQuestionBank
	}

	marks := make([]bool, n)
	correct := 0
	for ordinal := 1; ordinal <= n; ordinal++ {
		if answers[ordinal] {
			marks[ordinal-1] = true
			correct++
		}
	}

	score := correct * 100 / n
	return domain.Outcome{
		Score:          score,
		ElapsedMinutes: ElapsedMinutes(startedAt, now),
		Passed:         score >= theme.PassingScore,
		Correct:        correct,
		Total:          n,
		Marks:          marks,
	}, nil
}

// ElapsedMinutes floors the elapsed time to whole seconds, then to whole minutes.
func ElapsedMinutes(startedAt, now time.Time) int {
	d := now.Sub(startedAt)
	if d < 0 {
		return 0
	}
	seconds := int64(d / time.Second)
	return int(seconds / 60)
}

// NotificationPolicy holds the admin list and which notifications are enabled.
type NotificationPolicy struct {
	Admins             []string
	SubjectPrefix      string
	SendOnStart        bool
	SendOnCompletion   bool
	SendOnRetakeNeeded bool
}

// Notice is one message destined for every recipient listed.
type Notice struct {
	Kind       string
	Recipients []string
	Subject    string
	Body       string
}

const (
	NoticeStart      = "start"
	NoticeCompletion = "completion"
	NoticeRetake     = "retake"
)

// SubmissionNotices decides which notifications a scored submission triggers.
func (p NotificationPolicy) SubmissionNotices(user domain.User, theme domain.Theme, out domain.Outcome) []Notice {
	if len(p.Admins) == 0 {
		return nil
	}
	data := messageData{User: user, Theme: theme, Outcome: out}

	var notices []Notice
	if p.SendOnCompletion {
		notices = append(notices, p.render(NoticeCompletion, data))
	}
	if !out.Passed && p.SendOnRetakeNeeded {
		notices = append(notices, p.render(NoticeRetake, data))
	}
	return notices
}

// StartNotices returns the notice sent when a user opens a theme, if enabled.
func (p NotificationPolicy) StartNotices(user domain.User, theme domain.Theme, at time.Time) []Notice {
	if !p.SendOnStart || len(p.Admins) == 0 {
		return nil
	}
	return []Notice{p.render(NoticeStart, messageData{User: user, Theme: theme, StartedAt: at})}
}
