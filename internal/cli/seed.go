package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctscan-quiz/internal/domain"
)

// NewSeedCmd stores a question bank through the configured repositories.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store the built-in (or a JSON file) question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with questions; defaults to the built-in bank")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	questions := domain.SeedQuestions()
	if file != "" {
		questions, err = readQuestions(file)
		if err != nil {
			return err
		}
	}

	rt, err := buildRuntime(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.service.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	log.Info("question bank stored", zap.Int("questions", len(questions)))
	return nil
}

func readQuestions(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return questions, nil
}
