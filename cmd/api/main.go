package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"oracle/internal/adapter/repo"
	"oracle/internal/billing"
	"oracle/internal/cache"
	"oracle/internal/http/handlers"
	"oracle/internal/http/httpapi"
	"oracle/internal/infra"
	"oracle/internal/prediction"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	var snapshots cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure redis")
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, running without snapshot cache")
		} else {
			snapshots = redisCache
		}
	}

	jobs := repo.NewJobRepository(dbpool)
	users := repo.NewUserRepository(dbpool, cfg.NewUserCredits)

	controller := prediction.NewController(jobs, logger)
	reconciler := billing.NewReconciler(users, cfg.AppID, cfg.StripeEndpointSecret, logger)

	app := handlers.NewApp(controller, reconciler, users, snapshots, logger)
	router := httpapi.NewRouter(app, logger, cfg)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
