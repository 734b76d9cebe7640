package cli

import (
	"context"
	"errors"
	"fmt"

	"elearning-quiz-service/internal/config"
	"elearning-quiz-service/internal/domain"
	"elearning-quiz-service/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCheckCmd validates configuration, roster and every theme's question bank without serving.
func NewCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate config, roster and question banks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), *configPath)
		},
	}
}

func runCheck(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	return checkConfig(ctx, cfg, log)
}

func checkConfig(ctx context.Context, cfg config.Config, log logrus.FieldLogger) error {
	roster, err := loadRoster(cfg)
	if err != nil {
		return err
	}
	if roster.Len() == 0 {
		log.Warn("roster is empty: nobody can log in")
	}
	log.WithField("users", roster.Len()).Info("roster ok")

	res := newResources(cfg, log)
	defer res.Close()
	loader, err := res.questionLoader(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, theme := range cfg.ThemeList() {
		entry := log.WithField("theme", theme.Key)
		questions, err := loader.LoadQuestions(ctx, theme.Key)
		if err == nil {
			err = domain.ValidateQuestions(questions)
		}
		if err == nil && len(questions) == 0 {
			err = fmt.Errorf("%w: %w", domain.ErrQuestionLoad, domain.ErrEmptyQuestionBank)
		}
		if err != nil {
			entry.WithError(err).Error("question bank invalid")
			errs = append(errs, fmt.Errorf("theme %s: %w", theme.Key, err))
			continue
		}
		entry.WithFields(logrus.Fields{"questions": len(questions), "enabled": theme.Enabled}).Info("question bank ok")
	}
	return errors.Join(errs...)
}
