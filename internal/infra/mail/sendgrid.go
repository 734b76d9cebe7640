package mail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendgridConfig struct {
	APIKey   string
	From     string
	FromName string
	Timeout  time.Duration
	// Host overrides the API host (tests).
	Host string
}

// SendgridNotifier posts one v3 mail/send request per recipient.
type SendgridNotifier struct {
	cfg    SendgridConfig
	from   *sgmail.Email
	client *rest.Client
	log    logrus.FieldLogger
}

func NewSendgridNotifier(cfg SendgridConfig, log logrus.FieldLogger) *SendgridNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Host == "" {
		cfg.Host = sendgridHost
	}
	cfg.Timeout = orDefault(cfg.Timeout)
	return &SendgridNotifier{
		cfg:    cfg,
		from:   sgmail.NewEmail(cfg.FromName, cfg.From),
		client: &rest.Client{HTTPClient: &http.Client{Timeout: cfg.Timeout}},
		log:    log.WithField("transport", "sendgrid"),
	}
}

func (n *SendgridNotifier) Send(ctx context.Context, recipients []string, subject, body string) []domain.Delivery {
	return fanOut(ctx, n.cfg.Timeout, recipients, n.log, func(ctx context.Context, to string) error {
		return n.send(ctx, to, subject, body)
	})
}

func (n *SendgridNotifier) prepare(to, subject, body string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", body))
	return m
}

func (n *SendgridNotifier) send(ctx context.Context, to, subject, body string) error {
	req := sendgrid.GetRequest(n.cfg.APIKey, sendgridEndpoint, n.cfg.Host)
	req.Method = rest.Post
	req.Body = sgmail.GetRequestBody(n.prepare(to, subject, body))

	hreq, err := rest.BuildRequestObject(req)
	if err != nil {
		return fmt.Errorf("build sendgrid request: %w", err)
	}
	raw, err := n.client.MakeRequest(hreq.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	res, err := rest.BuildResponse(raw)
	if err != nil {
		return fmt.Errorf("read sendgrid response: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
