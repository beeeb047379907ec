package handlers

import (
	"context"
	"net/http"
)

func (a *App) FailedSpecs(w http.ResponseWriter, r *http.Request) {
	ids, err := a.Pipeline.FailedSpecIDs(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"failed_spec_ids": ids})
}

// GenerateAll runs the content phase in the background.
func (a *App) GenerateAll(w http.ResponseWriter, r *http.Request) {
	identity, err := a.identity(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.runDetached(r.Context(), "generate_all", func(ctx context.Context) (any, error) {
		return a.Pipeline.GenerateAll(ctx, identity, nil)
	})
	a.json(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (a *App) RetryContent(w http.ResponseWriter, r *http.Request) {
	identity, err := a.identity(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.runDetached(r.Context(), "retry_content", func(ctx context.Context) (any, error) {
		return a.Pipeline.RetryFailedContent(ctx, identity, nil)
	})
	a.json(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
