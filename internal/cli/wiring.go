package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"elearning-quiz-service/internal/app"
	"elearning-quiz-service/internal/config"
	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/infra/file"
	"elearning-quiz-service/internal/infra/mail"
	"elearning-quiz-service/internal/infra/memory"
	pgloader "elearning-quiz-service/internal/infra/postgres"
	infraredis "elearning-quiz-service/internal/infra/redis"
	"elearning-quiz-service/internal/infra/sqlstore"
	"elearning-quiz-service/internal/infra/sqlstore/migrations"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

// resources opens backing stores lazily so each is shared and closed once.
type resources struct {
	cfg config.Config
	log logrus.FieldLogger

	redis    *redis.Client
	pool     *pgxpool.Pool
	pgDB     *bun.DB
	sqliteDB *bun.DB
	closers  []func()
}

func newResources(cfg config.Config, log logrus.FieldLogger) *resources {
	return &resources{cfg: cfg, log: log}
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func (r *resources) redisClient() *redis.Client {
	if r.redis == nil && r.cfg.Redis.Addr != "" {
		r.redis = redis.NewClient(&redis.Options{
			Addr:     r.cfg.Redis.Addr,
			Password: r.cfg.Redis.Password,
			DB:       r.cfg.Redis.DB,
		})
		client := r.redis
		r.closers = append(r.closers, func() { _ = client.Close() })
	}
	return r.redis
}

func (r *resources) pgPool(ctx context.Context) (*pgxpool.Pool, error) {
	if r.pool != nil {
		return r.pool, nil
	}
	if r.cfg.Postgres.URL == "" {
		return nil, errors.New("postgres url not configured")
	}
	pool, err := pgxpool.Connect(ctx, r.cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	r.pool = pool
	r.closers = append(r.closers, pool.Close)
	return pool, nil
}

// postgresDB returns a migrated bun handle on Postgres.
func (r *resources) postgresDB(ctx context.Context) (*bun.DB, error) {
	if r.pgDB != nil {
		return r.pgDB, nil
	}
	if r.cfg.Postgres.URL == "" {
		return nil, errors.New("postgres url not configured")
	}
	db := sqlstore.OpenPostgres(r.cfg.Postgres.URL)
	if err := r.migrate(ctx, db, "postgres"); err != nil {
		db.Close()
		return nil, err
	}
	r.pgDB = db
	r.closers = append(r.closers, func() { _ = db.Close() })
	return db, nil
}

// openSQLite returns a migrated bun handle on the SQLite file.
func (r *resources) openSQLite(ctx context.Context) (*bun.DB, error) {
	if r.sqliteDB != nil {
		return r.sqliteDB, nil
	}
	db, err := sqlstore.OpenSQLite(r.cfg.Results.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := r.migrate(ctx, db, "sqlite"); err != nil {
		db.Close()
		return nil, err
	}
	r.sqliteDB = db
	r.closers = append(r.closers, func() { _ = db.Close() })
	return db, nil
}

func (r *resources) bunDB(ctx context.Context, driver string) (*bun.DB, error) {
	switch driver {
	case config.ResultsPostgres:
		return r.postgresDB(ctx)
	case config.ResultsSQLite:
		return r.openSQLite(ctx)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (r *resources) migrate(ctx context.Context, db *bun.DB, name string) error {
	group, err := migrations.Apply(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", name, err)
	}
	if !group.IsZero() {
		r.log.WithField("db", name).Infof("applied migrations %s", group)
	}
	return nil
}

func loadRoster(cfg config.Config) (*memory.Roster, error) {
	users, err := file.LoadRoster(cfg.Authentication.RosterCSVPath, cfg.Authentication.EmailColumn, cfg.Authentication.NameColumn)
	if err != nil {
		return nil, err
	}
	return memory.NewRoster(users), nil
}

// questionLoader returns the uncached loader for the configured source.
func (r *resources) questionLoader(ctx context.Context) (memory.QuestionLoader, error) {
	switch r.cfg.Questions.Source {
	case config.SourcePostgres:
		pool, err := r.pgPool(ctx)
		if err != nil {
			return nil, err
		}
		return pgloader.NewQuestionLoader(pool), nil
	case config.SourceSQLite:
		db, err := r.openSQLite(ctx)
		if err != nil {
			return nil, err
		}
		return sqlstore.NewQuestionStore(db), nil
	default:
		return file.NewQuestionLoader(r.cfg.ThemeList()), nil
	}
}

// questionBank wraps the loader in the Redis cache when Redis is configured, else in the in-process cache.
func (r *resources) questionBank(ctx context.Context) (app.QuestionBank, error) {
	loader, err := r.questionLoader(ctx)
	if err != nil {
		return nil, err
	}
	ttl := config.TTLDuration(r.cfg.Questions.TTL, 10*time.Minute)
	if client := r.redisClient(); client != nil {
		return infraredis.NewQuestionRepository(client, loader, config.TTLDuration(r.cfg.Redis.TTL, ttl)), nil
	}
	return memory.NewQuestionRepository(loader, ttl), nil
}

func (r *resources) resultSink(ctx context.Context) (app.ResultSink, error) {
	switch r.cfg.Results.Driver {
	case config.ResultsPostgres, config.ResultsSQLite:
		db, err := r.bunDB(ctx, r.cfg.Results.Driver)
		if err != nil {
			return nil, err
		}
		return sqlstore.NewAttemptStore(db), nil
	case config.ResultsRedis:
		client := r.redisClient()
		if client == nil {
			return nil, errors.New("redis addr not configured")
		}
		return infraredis.NewResultSink(client), nil
	case config.ResultsMemory:
		return memory.NewResultSink(), nil
	default:
		return file.NewCSVSink(r.cfg.Results.CSVPath), nil
	}
}

func newNotifier(cfg config.Config, creds config.Credentials, log logrus.FieldLogger) (app.Notifier, error) {
	timeout := config.TTLDuration(cfg.Email.Timeout, 10*time.Second)
	switch cfg.Email.Transport {
	case config.TransportSMTP:
		return mail.NewSMTPNotifier(mail.SMTPConfig{
			Host:     cfg.Email.SMTPServer,
			Port:     cfg.Email.SMTPPort,
			From:     cfg.Email.From,
			Username: creds.SMTPUsername,
			Password: creds.SMTPPassword,
			Timeout:  timeout,
		}, log), nil
	case config.TransportSendgrid:
		if creds.SendgridAPIKey == "" {
			return nil, fmt.Errorf("%w: SENDGRID_API_KEY is not set", domain.ErrConfigLoad)
		}
		return mail.NewSendgridNotifier(mail.SendgridConfig{
			APIKey:  creds.SendgridAPIKey,
			From:    cfg.Email.From,
			Timeout: timeout,
		}, log), nil
	default:
		return mail.NewConsoleNotifier(log), nil
	}
}

func notificationPolicy(cfg config.Config) app.NotificationPolicy {
	return app.NotificationPolicy{
		Admins:             cfg.Admins,
		SubjectPrefix:      cfg.Email.SubjectPrefix,
		SendOnStart:        cfg.Email.SendOnStart,
		SendOnCompletion:   cfg.Email.SendOnCompletion,
		SendOnRetakeNeeded: cfg.Email.SendOnRetakeNeeded,
	}
}

// buildMachine assembles the session machine and its collaborators from configuration.
func buildMachine(ctx context.Context, r *resources, creds config.Credentials) (*app.Machine, error) {
	roster, err := loadRoster(r.cfg)
	if err != nil {
		return nil, err
	}
	r.log.WithField("users", roster.Len()).Info("roster loaded")

	bank, err := r.questionBank(ctx)
	if err != nil {
		return nil, err
	}
	sink, err := r.resultSink(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := newNotifier(r.cfg, creds, r.log)
	if err != nil {
		return nil, err
	}
	dispatcher := app.NewDispatcher(sink, notifier, config.TTLDuration(r.cfg.Effects.Timeout, 10*time.Second), r.log)

	return app.NewMachine(app.Deps{
		Roster:     roster,
		Questions:  bank,
		Dispatcher: dispatcher,
		Themes:     r.cfg.ThemeList(),
		Policy:     notificationPolicy(r.cfg),
		Logger:     r.log,
	}), nil
}
