package migrations

import (
	"context"

	"elearning-quiz-service/internal/infra/sqlstore"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.NewCreateTable().Model((*sqlstore.AttemptRow)(nil)).IfNotExists().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateIndex().
				Model((*sqlstore.AttemptRow)(nil)).
				Index("attempts_email_idx").
				IfNotExists().
				Column("email").
				Exec(ctx); err != nil {
				return err
			}
			_, err := db.NewCreateTable().Model((*sqlstore.QuestionBankRow)(nil)).IfNotExists().Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.NewDropTable().Model((*sqlstore.QuestionBankRow)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			_, err := db.NewDropTable().Model((*sqlstore.AttemptRow)(nil)).IfExists().Exec(ctx)
			return err
		},
	)
}

// Apply initialises the migration tables and runs every pending migration.
func Apply(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, err
	}
	return migrator.Migrate(ctx)
}
