package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPNotifier submits mail over SMTP, upgrading with STARTTLS when the server offers it.
type SMTPNotifier struct {
	cfg SMTPConfig
	log logrus.FieldLogger
	now func() time.Time
}

func NewSMTPNotifier(cfg SMTPConfig, log logrus.FieldLogger) *SMTPNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg.Timeout = orDefault(cfg.Timeout)
	return &SMTPNotifier{cfg: cfg, log: log.WithField("transport", "smtp"), now: time.Now}
}

func (n *SMTPNotifier) Send(ctx context.Context, recipients []string, subject, body string) []domain.Delivery {
	return fanOut(ctx, n.cfg.Timeout, recipients, n.log, func(ctx context.Context, to string) error {
		return n.send(ctx, to, subject, body)
	})
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if n.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt %s: %w", to, err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(n.message(to, subject, body)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return c.Quit()
}

func (n *SMTPNotifier) message(to, subject, body string) []byte {
	msg := new(strings.Builder)
	_, _ = fmt.Fprintf(msg, "From: %s\r\n", n.cfg.From)
	_, _ = fmt.Fprintf(msg, "To: %s\r\n", to)
	_, _ = fmt.Fprintf(msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	_, _ = fmt.Fprintf(msg, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	_, _ = fmt.Fprint(msg, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprint(msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	_, _ = fmt.Fprint(msg, "Content-Transfer-Encoding: 8bit\r\n")
	_, _ = fmt.Fprint(msg, "\r\n")
	_, _ = fmt.Fprint(msg, strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(msg.String())
}
