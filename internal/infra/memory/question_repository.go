package memory

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"elearning-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader reads one theme's question bank from its source of record
// (question files, the question_banks table).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, themeKey string) ([]domain.Question, error)
}

// QuestionRepository serves per-theme question banks to the quiz machine.
// Only banks that pass domain.ValidateQuestions are kept; each stays fresh for
// the TTL plus up to 10% jitter. Concurrent misses on a theme share one load.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	loads  singleflight.Group

	mu    sync.RWMutex
	banks map[string]themeBank
}

type themeBank struct {
	questions []domain.Question
	staleAt   time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		banks:  make(map[string]themeBank),
	}
}

// Questions returns the bank for themeKey. A bank with any malformed question
// fails as a whole with domain.ErrMalformedQuestion and is loaded again next time.
func (r *QuestionRepository) Questions(ctx context.Context, themeKey string) ([]domain.Question, error) {
	if questions, ok := r.fresh(themeKey); ok {
		return questions, nil
	}
	v, err, _ := r.loads.Do(themeKey, func() (interface{}, error) {
		if questions, ok := r.fresh(themeKey); ok {
			return questions, nil
		}
		return r.reload(ctx, themeKey)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Question), nil
}

func (r *QuestionRepository) fresh(themeKey string) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bank, ok := r.banks[themeKey]
	if !ok || !bank.staleAt.After(r.clock()) {
		return nil, false
	}
	return bank.questions, true
}

func (r *QuestionRepository) reload(ctx context.Context, themeKey string) ([]domain.Question, error) {
	loadedAt := r.clock()
	questions, err := r.loader.LoadQuestions(ctx, themeKey)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.banks[themeKey] = themeBank{questions: questions, staleAt: loadedAt.Add(r.freshFor())}
	r.mu.Unlock()
	return questions, nil
}

// freshFor is the TTL plus up to 10% jitter; zero disables caching.
func (r *QuestionRepository) freshFor() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	return r.ttl + rand.N(r.ttl/10+1)
}
