package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sitegen/internal/assets"
	"sitegen/internal/bootstrap"
	"sitegen/internal/cli"
	"sitegen/internal/infra"
	"sitegen/internal/infra/credentials"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loaders := cli.Loaders{
		Pipeline: openPipeline,
		Keys:     openKeys,
	}
	if err := cli.Execute(ctx, loaders, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func config() (*infra.Config, infra.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, infra.Logger{}, err
	}
	// Command output goes to stdout; keep the log to warnings.
	logger := infra.NewLogger(cfg.AppEnv).Level(zerolog.WarnLevel)
	return cfg, logger, nil
}

func openPipeline(ctx context.Context) (*cli.Deps, error) {
	cfg, logger, err := config()
	if err != nil {
		return nil, err
	}
	c, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &cli.Deps{
		Pipeline: c.Service,
		Identity: c.DefaultIdentity,
		Counts:   c.Backend.Counts,
		Lookup:   c.Backend.Lookup,
		Export: func(ctx context.Context, w io.Writer) (int, error) {
			return assets.Export(ctx, c.Files, w, time.Now())
		},
		Close: c.Close,
	}, nil
}

// openKeys needs only the database, so keys can be stored before any
// templates exist.
func openKeys(ctx context.Context) (cli.KeyStore, func(), error) {
	cfg, logger, err := config()
	if err != nil {
		return nil, nil, err
	}
	backend, err := bootstrap.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return credentials.NewStore(backend.KV), backend.Close, nil
}
