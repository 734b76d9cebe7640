package app

import (
	"context"
	"fmt"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Effects are the best-effort side effects of a finalized transition.
type Effects struct {
	Attempt *domain.AttemptRecord
	Notices []Notice
}

// Report lists side effect failures. Failures never roll back a transition.
type Report struct {
	Errors []error
}

// Warnings renders the failures for the user.
func (r Report) Warnings() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}

// Dispatcher runs persistence and notification concurrently under a deadline.
type Dispatcher struct {
	sink     ResultSink
	notifier Notifier
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewDispatcher(sink ResultSink, notifier Notifier, timeout time.Duration, log logrus.FieldLogger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{sink: sink, notifier: notifier, timeout: timeout, log: log}
}

// Dispatch blocks until every task finished or the deadline passed.
func (d *Dispatcher) Dispatch(ctx context.Context, eff Effects) Report {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// One slot per task so goroutines never share a slice header.
	results := make([][]error, len(eff.Notices)+1)
	var g errgroup.Group

	if eff.Attempt != nil {
		record := *eff.Attempt
		g.Go(func() error {
			if err := d.sink.Append(ctx, record); err != nil {
				err = fmt.Errorf("%w: attempt %s: %v", domain.ErrPersistence, record.ID, err)
				d.log.WithFields(logrus.Fields{
					"attempt": record.ID,
					"user":    record.Email,
					"theme":   record.ThemeKey,
				}).WithError(err).Error("result sink append failed")
				results[0] = []error{err}
			}
			return nil
		})
	}

	for i, notice := range eff.Notices {
		i, notice := i, notice
		g.Go(func() error {
			var errs []error
			for _, delivery := range d.notifier.Send(ctx, notice.Recipients, notice.Subject, notice.Body) {
				if delivery.Err == nil {
					continue
				}
				err := fmt.Errorf("%w: %s mail to %s: %v", domain.ErrNotification, notice.Kind, delivery.Recipient, delivery.Err)
				d.log.WithFields(logrus.Fields{
					"notice":    notice.Kind,
					"recipient": delivery.Recipient,
				}).WithError(delivery.Err).Warn("notification failed")
				errs = append(errs, err)
			}
			results[i+1] = errs
			return nil
		})
	}

	_ = g.Wait()

	var report Report
	for _, errs := range results {
		report.Errors = append(report.Errors, errs...)
	}
	return report
}
