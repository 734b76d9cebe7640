package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a theme's question bank from a backing store (files, Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, themeKey string) ([]domain.Question, error)
}

// QuestionRepository caches validated question banks in Redis and falls back to a loader on cache miss.
// Banks are stored as: SET quiz:{themeKey}:questions {json} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) Questions(ctx context.Context, themeKey string) ([]domain.Question, error) {
	key := r.questionsKey(themeKey)

	if questions, ok := r.cached(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(themeKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := r.cached(ctx, key); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, themeKey)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateQuestions(questions); err != nil {
			return nil, err
		}

		if data, err := json.Marshal(domain.QuestionBank{Questions: questions}); err == nil {
			// best-effort: a cache write failure still serves the loaded bank
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// cached returns a bank from Redis. Entries that no longer validate are treated as a miss.
func (r *QuestionRepository) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return nil, false
	}
	if len(bank.Questions) == 0 || domain.ValidateQuestions(bank.Questions) != nil {
		return nil, false
	}
	return bank.Questions, true
}

// Invalidate drops a cached bank so the next read reloads it.
func (r *QuestionRepository) Invalidate(ctx context.Context, themeKey string) error {
	return r.client.Del(ctx, r.questionsKey(themeKey)).Err()
}

func (r *QuestionRepository) questionsKey(themeKey string) string {
	return "quiz:" + themeKey + ":questions"
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
