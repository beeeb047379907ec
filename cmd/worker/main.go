package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitegen/internal/bootstrap"
	"sitegen/internal/domain"
	"sitegen/internal/generation"
	"sitegen/internal/infra"
)

// continuer is the slice of generation.Service the worker drives.
type continuer interface {
	Continue(ctx context.Context, cb domain.ProgressFunc) (*generation.RunReport, error)
}

type pipelineWorker struct {
	ctx      context.Context
	pipeline continuer
	logger   infra.Logger
	interval time.Duration
}

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure pipeline")
	}
	defer components.Close()

	worker := &pipelineWorker{
		ctx:      ctx,
		pipeline: components.Service,
		logger:   logger,
		interval: cfg.WorkerPollInterval,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// Run polls the checkpoint and advances any in-progress run until the
// context is cancelled.
func (w *pipelineWorker) Run() error {
	w.logger.Info().Dur("interval", w.interval).Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		w.tick()

		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

func (w *pipelineWorker) tick() {
	report, err := w.pipeline.Continue(w.ctx, w.progress)
	switch {
	case err == nil:
		if report != nil && (report.Content != nil || report.Images != nil) {
			w.logger.Info().Str("status", string(report.Status)).Interface("report", report).Msg("worker: run advanced")
		}
	case errors.Is(err, domain.ErrLocked):
		w.logger.Debug().Msg("worker: pipeline busy")
	case errors.Is(err, domain.ErrPaused):
		w.logger.Info().Msg("worker: run paused")
	case errors.Is(err, domain.ErrCancelled):
		w.logger.Info().Msg("worker: run cancelled")
	case errors.Is(err, context.Canceled):
	default:
		w.logger.Error().Err(err).Msg("worker: run failed")
	}
}

func (w *pipelineWorker) progress(p domain.Progress) {
	evt := w.logger.Info()
	if p.Failed {
		evt = w.logger.Warn()
	}
	evt.Str("phase", string(p.Phase)).
		Int("step", p.Step).
		Int("total", p.Total).
		Str("item", p.ItemID).
		Bool("failed", p.Failed).
		Msg("worker: progress")
}
