package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"oracle/internal/adapter/repo"
	"oracle/internal/infra"
	"oracle/internal/predictor"
	"oracle/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer dbpool.Close()

	if err := infra.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to run migrations")
	}

	jobs := repo.NewJobRepository(dbpool)
	users := repo.NewUserRepository(dbpool, cfg.NewUserCredits)

	var runner predictor.Runner
	if cfg.OpenAIAPIKey != "" {
		runner, err = predictor.NewOpenAIRunner(predictor.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to configure openai runner")
		}
	} else {
		logger.Warn().Msg("worker: openai api key missing, using synthetic estimates")
		runner = predictor.NewHeuristicRunner()
	}

	w := worker.New(jobs, users, runner, logger, cfg.WorkerPollInterval, cfg.MaxDailyDemoUses)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
