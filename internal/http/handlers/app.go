package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"sitegen/internal/domain"
	"sitegen/internal/generation"
	"sitegen/internal/infra"
)

// Pipeline is the generation facade the handlers drive.
type Pipeline interface {
	StartGeneration(ctx context.Context, opts generation.StartOptions) (bool, error)
	Progress(ctx context.Context) (domain.GenerationState, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) (domain.GenerationStatus, error)
	Cancel(ctx context.Context) error
	FailedSpecIDs(ctx context.Context) ([]string, error)
	QueueStatistics(ctx context.Context) (domain.QueueStatistics, error)
	GenerateAll(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error)
	RetryFailedContent(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error)
	ProcessImageQueue(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error)
	RetryFailedImages(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error)
}

// FileReader serves stored media by storage key.
type FileReader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

type App struct {
	Pipeline Pipeline
	Files    FileReader
	// Identity resolves the profile used when a request does not carry one.
	Identity func(ctx context.Context) (domain.Identity, error)
	Ping     func(ctx context.Context) error
	Logger   infra.Logger

	// background runs long operations detached from the request.
	background sync.WaitGroup
}

func NewApp(pipeline Pipeline, files FileReader, identity func(context.Context) (domain.Identity, error), logger *infra.Logger) *App {
	return &App{
		Pipeline: pipeline,
		Files:    files,
		Identity: identity,
		Logger:   infra.EnsureLogger(logger),
	}
}

// Wait blocks until background runs started by handlers return.
func (a *App) Wait() {
	a.background.Wait()
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// fail maps pipeline errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidStatus):
		a.error(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		a.error(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrLocked):
		a.error(w, http.StatusConflict, "locked", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("api: request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// identity prefers the identity stored with the current run.
func (a *App) identity(ctx context.Context) (domain.Identity, error) {
	if st, err := a.Pipeline.Progress(ctx); err == nil && st.Identity.Name != "" {
		return st.Identity, nil
	}
	if a.Identity == nil {
		return domain.Identity{}, errors.New("no identity configured")
	}
	return a.Identity(ctx)
}

// runDetached starts op in the background so long batches outlive the
// request. Results are logged.
func (a *App) runDetached(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) {
	detached := context.WithoutCancel(ctx)
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		result, err := fn(detached)
		if err != nil {
			a.Logger.Error().Err(err).Str("op", op).Msg("api: background run failed")
			return
		}
		a.Logger.Info().Str("op", op).Interface("result", result).Msg("api: background run finished")
	}()
}
