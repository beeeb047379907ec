package handlers

import (
	"context"
	"net/http"
)

func (a *App) QueueStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Pipeline.QueueStatistics(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}

func (a *App) ProcessImages(w http.ResponseWriter, r *http.Request) {
	identity, err := a.identity(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.runDetached(r.Context(), "process_images", func(ctx context.Context) (any, error) {
		return a.Pipeline.ProcessImageQueue(ctx, identity, nil)
	})
	a.json(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (a *App) RetryImages(w http.ResponseWriter, r *http.Request) {
	identity, err := a.identity(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.runDetached(r.Context(), "retry_images", func(ctx context.Context) (any, error) {
		return a.Pipeline.RetryFailedImages(ctx, identity, nil)
	})
	a.json(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
