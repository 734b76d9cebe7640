package cli

import (
	"context"

	"elearning-quiz-service/internal/config"
	"elearning-quiz-service/internal/logging"
	"github.com/spf13/cobra"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var driver string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, driver)
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "database to migrate: postgres or sqlite (default: postgres when configured)")
	return cmd
}

func runMigrations(ctx context.Context, configPath, driver string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	driver = databaseDriver(cfg, driver)
	res := newResources(cfg, log)
	defer res.Close()

	if _, err := res.bunDB(ctx, driver); err != nil {
		return err
	}
	log.WithField("db", driver).Info("migrations applied")
	return nil
}

// databaseDriver picks the SQL database a maintenance command targets.
func databaseDriver(cfg config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	if cfg.Postgres.URL != "" {
		return config.ResultsPostgres
	}
	return config.ResultsSQLite
}
