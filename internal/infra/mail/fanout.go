// Package mail delivers admin notifications. Every transport sends one message per recipient,
// concurrently and bounded by a per-recipient timeout; a failed delivery never stops the others.
package mail

import (
	"context"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const maxParallelDeliveries = 4

type deliverFunc func(ctx context.Context, recipient string) error

func fanOut(ctx context.Context, timeout time.Duration, recipients []string, log logrus.FieldLogger, deliver deliverFunc) []domain.Delivery {
	out := make([]domain.Delivery, len(recipients))
	var g errgroup.Group
	g.SetLimit(maxParallelDeliveries)
	for i, recipient := range recipients {
		i, recipient := i, recipient
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			err := deliver(rctx, recipient)
			out[i] = domain.Delivery{Recipient: recipient, Err: err}
			if err != nil {
				log.WithField("recipient", recipient).WithError(err).Warn("mail delivery failed")
			} else {
				log.WithField("recipient", recipient).Debug("mail delivered")
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
