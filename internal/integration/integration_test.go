package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/infra/memory"
	pgloader "elearning-quiz-service/internal/infra/postgres"
	infraredis "elearning-quiz-service/internal/infra/redis"
	"elearning-quiz-service/internal/infra/sqlstore"
	"elearning-quiz-service/internal/infra/sqlstore/migrations"
	"elearning-quiz-service/internal/logging"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestQuizSubmissionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := sqlstore.OpenPostgres(pgURL)
	defer db.Close()
	if _, err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := sqlstore.NewQuestionStore(db).Save(ctx, "safety", sampleQuestions()); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := logging.Discard()
	bank := infraredis.NewQuestionRepository(redisClient, pgloader.NewQuestionLoader(pool), 5*time.Minute)
	attempts := sqlstore.NewAttemptStore(db)
	machine := app.NewMachine(app.Deps{
		Roster:     memory.NewRoster([]domain.User{{Email: "taro@example.com", DisplayName: "Taro"}}),
		Questions:  bank,
		Dispatcher: app.NewDispatcher(attempts, noopNotifier{}, 10*time.Second, log),
		Themes:     []domain.Theme{{Key: "safety", Title: "Safety", TimeLimitMinutes: 30, PassingScore: 60, Enabled: true}},
		Logger:     log,
	})

	s := app.NewSession()
	for _, ev := range []app.Event{
		app.Login{Email: "taro@example.com"},
		app.SelectTheme{Key: "safety"},
		app.StartQuiz{},
		app.Answer{Ordinal: 1, Option: 1},
		app.Answer{Ordinal: 2, Option: 1},
		app.Submit{},
	} {
		if s, err = machine.Apply(ctx, s, ev); err != nil {
			t.Fatalf("apply %T: %v", ev, err)
		}
	}
	if s.State != app.StateResult || *s.Score != 50 || s.Passed {
		t.Fatalf("expected failing 50, got state=%s score=%v passed=%v", s.State, s.Score, s.Passed)
	}
	if len(s.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", s.Warnings)
	}

	if n, err := redisClient.Exists(ctx, "quiz:safety:questions").Result(); err != nil || n != 1 {
		t.Fatalf("expected bank cached in redis, got %d %v", n, err)
	}

	records, err := attempts.List(ctx, "taro@example.com")
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(records) != 1 || records[0].ID != s.AttemptID || records[0].Score != 50 {
		t.Fatalf("expected persisted attempt, got %+v", records)
	}
	if want := []bool{true, false}; records[0].Marks[0] != want[0] || records[0].Marks[1] != want[1] {
		t.Fatalf("unexpected marks %v", records[0].Marks)
	}
}

func TestRedisResultSink(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, cleanup := startRedis(t, ctx)
	defer cleanup()
	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	sink := infraredis.NewResultSink(client)
	if err := sink.Append(ctx, domain.AttemptRecord{ID: "a1", Email: "taro@example.com", Score: 90, Passed: true}); err != nil {
		t.Fatalf("append: %v", err)
	}
	recent, err := sink.Recent(ctx, 10)
	if err != nil || len(recent) != 1 || recent[0].ID != "a1" {
		t.Fatalf("expected stored attempt, got %+v %v", recent, err)
	}
}

type noopNotifier struct{}

func (noopNotifier) Send(_ context.Context, recipients []string, _, _ string) []domain.Delivery {
	out := make([]domain.Delivery, len(recipients))
	for i, r := range recipients {
		out[i] = domain.Delivery{Recipient: r}
	}
	return out
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: 1},
		{Prompt: "Helmet on site?", Options: []string{"always", "never"}, CorrectAnswer: 0},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
