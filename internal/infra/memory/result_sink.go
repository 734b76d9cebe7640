package memory

import (
	"context"
	"sync"

	"elearning-quiz-service/internal/domain"
)

// ResultSink keeps attempt records in process memory.
type ResultSink struct {
	mu      sync.Mutex
	records []domain.AttemptRecord
}

func NewResultSink() *ResultSink {
	return &ResultSink{}
}

func (s *ResultSink) Append(_ context.Context, record domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything appended so far.
func (s *ResultSink) Records() []domain.AttemptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AttemptRecord, len(s.records))
	copy(out, s.records)
	return out
}
