package mail

import (
	"context"
	"sync"

	"elearning-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// Message is a notification as the console transport saw it.
type Message struct {
	To      string
	Subject string
	Body    string
}

// ConsoleNotifier logs messages instead of sending them and keeps a copy for inspection.
type ConsoleNotifier struct {
	log logrus.FieldLogger

	mu   sync.Mutex
	sent []Message
}

func NewConsoleNotifier(log logrus.FieldLogger) *ConsoleNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConsoleNotifier{log: log.WithField("transport", "console")}
}

func (n *ConsoleNotifier) Send(_ context.Context, recipients []string, subject, body string) []domain.Delivery {
	out := make([]domain.Delivery, 0, len(recipients))
	for _, to := range recipients {
		n.log.WithFields(logrus.Fields{"recipient": to, "subject": subject}).Info(body)
		n.mu.Lock()
		n.sent = append(n.sent, Message{To: to, Subject: subject, Body: body})
		n.mu.Unlock()
		out = append(out, domain.Delivery{Recipient: to})
	}
	return out
}

func (n *ConsoleNotifier) Sent() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.sent...)
}
