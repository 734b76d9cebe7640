package cli

import (
	"context"
	"fmt"

	"elearning-quiz-service/internal/config"
	"elearning-quiz-service/internal/infra/file"
	"elearning-quiz-service/internal/infra/sqlstore"
	"elearning-quiz-service/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewImportQuestionsCmd copies the file-based question banks into a SQL database.
func NewImportQuestionsCmd(configPath *string) *cobra.Command {
	var driver string
	cmd := &cobra.Command{
		Use:   "import-questions [theme...]",
		Short: "Import question files into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportQuestions(cmd.Context(), *configPath, driver, args)
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "target database: postgres or sqlite (default: postgres when configured)")
	return cmd
}

func runImportQuestions(ctx context.Context, configPath, driver string, only []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	res := newResources(cfg, log)
	defer res.Close()
	db, err := res.bunDB(ctx, databaseDriver(cfg, driver))
	if err != nil {
		return err
	}
	n, err := importQuestions(ctx, cfg, sqlstore.NewQuestionStore(db), only, log)
	if err != nil {
		return err
	}
	log.WithField("themes", n).Info("question banks imported")
	return nil
}

func importQuestions(ctx context.Context, cfg config.Config, store *sqlstore.QuestionStore, only []string, log logrus.FieldLogger) (int, error) {
	wanted := make(map[string]bool, len(only))
	for _, key := range only {
		if _, ok := cfg.Themes[key]; !ok {
			return 0, fmt.Errorf("unknown theme %q", key)
		}
		wanted[key] = true
	}

	loader := file.NewQuestionLoader(cfg.ThemeList())
	imported := 0
	for _, theme := range cfg.ThemeList() {
		if len(wanted) > 0 && !wanted[theme.Key] {
			continue
		}
		if theme.QuestionsPath == "" {
			log.WithField("theme", theme.Key).Warn("no questions_path, skipped")
			continue
		}
		questions, err := loader.LoadQuestions(ctx, theme.Key)
		if err != nil {
			return imported, fmt.Errorf("theme %s: %w", theme.Key, err)
		}
		if err := store.Save(ctx, theme.Key, questions); err != nil {
			return imported, err
		}
		log.WithFields(logrus.Fields{"theme": theme.Key, "questions": len(questions)}).Info("imported")
		imported++
	}
	return imported, nil
}
