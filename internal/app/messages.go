package app

import (
	"strings"
	"text/template"
	"time"

	"elearning-quiz-service/internal/domain"
)

type messageData struct {
	User      domain.User
	Theme     domain.Theme
	Outcome   domain.Outcome
	StartedAt time.Time
}

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var messageTemplates = map[string]messageTemplate{
	NoticeStart: {
		subject: template.Must(template.New("start-subject").Parse(`{{.User.DisplayName}} started "{{.Theme.Title}}"`)),
		body: template.Must(template.New("start-body").Parse(`{{.User.DisplayName}} ({{.User.Email}}) started studying "{{.Theme.Title}}".

- Started at: {{.StartedAt.Format "2006-01-02 15:04:05"}}
- Time limit: {{.Theme.TimeLimitMinutes}} min
- Passing score: {{.Theme.PassingScore}}
`)),
	},
	NoticeCompletion: {
		subject: template.Must(template.New("completion-subject").Parse(`{{.User.DisplayName}} completed "{{.Theme.Title}}"`)),
		body: template.Must(template.New("completion-body").Parse(`{{.User.DisplayName}} ({{.User.Email}}) completed "{{.Theme.Title}}".

Result
- Score: {{.Outcome.Score}}
- Time spent: {{.Outcome.ElapsedMinutes}} min
- Verdict: {{if .Outcome.Passed}}PASSED{{else}}FAILED{{end}}
`)),
	},
	NoticeRetake: {
		subject: template.Must(template.New("retake-subject").Parse(`{{.User.DisplayName}} needs to retake "{{.Theme.Title}}"`)),
		body: template.Must(template.New("retake-body").Parse(`{{.User.DisplayName}} ({{.User.Email}}) did not reach the passing score for "{{.Theme.Title}}".

Result
- Score: {{.Outcome.Score}}
- Passing score: {{.Theme.PassingScore}}
- Time spent: {{.Outcome.ElapsedMinutes}} min

Please follow up with the learner.
`)),
	},
}

func (p NotificationPolicy) render(kind string, data messageData) Notice {
	tmpl := messageTemplates[kind]

	var subject, body strings.Builder
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		subject.Reset()
		subject.WriteString(kind + " notification")
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		body.Reset()
	}

	prefix := p.SubjectPrefix
	if prefix != "" {
		prefix += " "
	}
	recipients := make([]string, len(p.Admins))
	copy(recipients, p.Admins)

	return Notice{
		Kind:       kind,
		Recipients: recipients,
		Subject:    prefix + subject.String(),
		Body:       body.String(),
	}
}
