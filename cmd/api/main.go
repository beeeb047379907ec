package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"sitegen/internal/bootstrap"
	"sitegen/internal/http/handlers"
	httpapi "sitegen/internal/http/httpapi"
	"sitegen/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure pipeline")
	}
	defer components.Close()

	app := handlers.NewApp(components.Service, components.Files, components.DefaultIdentity, &logger)
	app.Ping = components.Backend.Ping

	router := httpapi.NewRouter(app, httpapi.Options{
		APIToken:      cfg.APIToken,
		MutationLimit: cfg.MutationLimit,
		Logger:        logger,
	})
	if cfg.APIToken == "" {
		logger.Warn().Msg("API_TOKEN not set, pipeline routes are unauthenticated")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := infra.NewHTTPServer(cfg, router, logger)
	if err := server.Serve(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	// Detached batches run to completion.
	app.Wait()
	logger.Info().Msg("server stopped")
}
