package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"elearning-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptsKey is the Redis list holding every attempt, oldest first.
const AttemptsKey = "quiz:attempts"

// ResultSink appends attempt records as JSON to a Redis list.
type ResultSink struct {
	client *redis.Client
}

func NewResultSink(client *redis.Client) *ResultSink {
	return &ResultSink{client: client}
}

func (s *ResultSink) Append(ctx context.Context, record domain.AttemptRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	if err := s.client.RPush(ctx, AttemptsKey, data).Err(); err != nil {
		return fmt.Errorf("rpush attempt: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest attempts, oldest first. n <= 0 returns none.
func (s *ResultSink) Recent(ctx context.Context, n int64) ([]domain.AttemptRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, AttemptsKey, -n, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.AttemptRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.AttemptRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
