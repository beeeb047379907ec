package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"sitegen/internal/domain"
	"sitegen/internal/domain/jsoncfg"
	"sitegen/internal/generation"
)

type startRequest struct {
	Identity   json.RawMessage `json:"identity"`
	TotalSteps int             `json:"total_steps"`
}

// StartGeneration resets the checkpoint; a worker then drives the run.
func (a *App) StartGeneration(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	var identity domain.Identity
	var err error
	if len(req.Identity) > 0 && string(req.Identity) != "null" {
		identity, err = jsoncfg.ParseIdentity(req.Identity)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	} else {
		if a.Identity == nil {
			a.error(w, http.StatusBadRequest, "bad_request", "identity required")
			return
		}
		identity, err = a.Identity(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
	}

	started, err := a.Pipeline.StartGeneration(r.Context(), generation.StartOptions{Identity: identity, TotalSteps: req.TotalSteps})
	if err != nil {
		a.fail(w, err)
		return
	}
	if !started {
		a.error(w, http.StatusConflict, "already_generating", "a generation run is already in progress")
		return
	}
	a.json(w, http.StatusAccepted, map[string]any{"started": true, "identity": identity.Name})
}

func (a *App) Progress(w http.ResponseWriter, r *http.Request) {
	st, err := a.Pipeline.Progress(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, st)
}

func (a *App) Pause(w http.ResponseWriter, r *http.Request) {
	if err := a.Pipeline.Pause(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": string(domain.StatusPaused)})
}

func (a *App) Resume(w http.ResponseWriter, r *http.Request) {
	status, err := a.Pipeline.Resume(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (a *App) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := a.Pipeline.Cancel(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
