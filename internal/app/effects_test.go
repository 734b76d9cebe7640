package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/logging"
)

type blockingSink struct{}

func (blockingSink) Append(ctx context.Context, _ domain.AttemptRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

type silentNotifier struct{}

func (silentNotifier) Send(_ context.Context, recipients []string, _, _ string) []domain.Delivery {
	out := make([]domain.Delivery, len(recipients))
	for i, r := range recipients {
		out[i] = domain.Delivery{Recipient: r}
	}
	return out
}

func TestDispatchIsBoundedByTimeout(t *testing.T) {
	d := NewDispatcher(blockingSink{}, silentNotifier{}, 50*time.Millisecond, logging.Discard())

	start := time.Now()
	report := d.Dispatch(context.Background(), Effects{
		Attempt: &domain.AttemptRecord{ID: "a1"},
		Notices: []Notice{{Kind: NoticeCompletion, Recipients: []string{"x@example.com"}}},
	})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("dispatch should give up near the deadline, took %s", elapsed)
	}
	if len(report.Errors) != 1 || !errors.Is(report.Errors[0], domain.ErrPersistence) {
		t.Fatalf("expected a single persistence failure, got %v", report.Errors)
	}
	if len(report.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %v", report.Warnings())
	}
}

func TestDispatchWithoutEffects(t *testing.T) {
	d := NewDispatcher(blockingSink{}, silentNotifier{}, time.Second, logging.Discard())
	if report := d.Dispatch(context.Background(), Effects{}); report.Warnings() != nil {
		t.Fatalf("expected empty report, got %v", report.Errors)
	}
}
