// Package generation drives the checkpointed website generation pipeline:
// the persisted state machine, the content phase, image collection and the
// image batch phase.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
)

// StateKey is the key-value key holding the generation checkpoint.
const StateKey = "sitegen:generation_state"

// Phase labels stored in GenerationState.CurrentPhase.
const (
	PhaseIdentity = "identity"
	PhaseContent  = "content"
	PhaseImages   = "images"
)

// StateManager owns the persisted GenerationState.
type StateManager struct {
	kv     domain.KeyValueStore
	plan   domain.StepPlan
	logger infra.Logger
	now    func() time.Time
}

// NewStateManager builds a StateManager. plan is used to recover the phase
// on resume.
func NewStateManager(kv domain.KeyValueStore, plan domain.StepPlan, logger *infra.Logger) *StateManager {
	return &StateManager{kv: kv, plan: plan, logger: infra.EnsureLogger(logger), now: time.Now}
}

// Plan returns the configured step plan.
func (m *StateManager) Plan() domain.StepPlan {
	return m.plan
}

// maxSwapAttempts bounds how often a write is retried after a concurrent
// writer replaced the state between read and swap.
const maxSwapAttempts = 8

var errStateContention = errors.New("generation state kept changing")

// GetState returns the persisted state or the idle default.
func (m *StateManager) GetState(ctx context.Context) (domain.GenerationState, error) {
	raw, err := m.kv.Get(ctx, StateKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.IdleState(), nil
		}
		return domain.GenerationState{}, fmt.Errorf("load generation state: %w", err)
	}
	return decodeState(raw)
}

func decodeState(raw []byte) (domain.GenerationState, error) {
	var state domain.GenerationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.GenerationState{}, fmt.Errorf("decode generation state: %w", err)
	}
	if state.Status == "" {
		state.Status = domain.StatusIdle
	}
	return state, nil
}

func (m *StateManager) encode(state domain.GenerationState) ([]byte, error) {
	state.UpdatedAt = m.now().UTC()
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode generation state: %w", err)
	}
	return raw, nil
}

// SaveState overwrites the persisted state.
func (m *StateManager) SaveState(ctx context.Context, state domain.GenerationState) error {
	raw, err := m.encode(state)
	if err != nil {
		return err
	}
	if err := m.kv.Set(ctx, StateKey, raw); err != nil {
		return fmt.Errorf("save generation state: %w", err)
	}
	return nil
}

// mutate applies fn to the stored state, starting from the idle default when
// none exists.
func (m *StateManager) mutate(ctx context.Context, fn func(*domain.GenerationState) error) error {
	return m.update(ctx, true, fn)
}

// updateExisting applies fn only while a state is stored. Once the state is
// gone it returns domain.ErrCancelled and writes nothing.
func (m *StateManager) updateExisting(ctx context.Context, fn func(*domain.GenerationState) error) error {
	return m.update(ctx, false, fn)
}

// update is a read-modify-write of the state document. Existing documents are
// replaced by compare-and-swap, so a pause or cancel landing between the read
// and the write is re-read instead of overwritten.
func (m *StateManager) update(ctx context.Context, create bool, fn func(*domain.GenerationState) error) error {
	for attempt := 1; attempt <= maxSwapAttempts; attempt++ {
		raw, err := m.kv.Get(ctx, StateKey)
		if errors.Is(err, domain.ErrNotFound) {
			if !create {
				return domain.ErrCancelled
			}
			state := domain.IdleState()
			if err := fn(&state); err != nil {
				return err
			}
			return m.SaveState(ctx, state)
		}
		if err != nil {
			return fmt.Errorf("load generation state: %w", err)
		}

		state, err := decodeState(raw)
		if err != nil {
			return err
		}
		if err := fn(&state); err != nil {
			return err
		}
		next, err := m.encode(state)
		if err != nil {
			return err
		}
		swapped, err := m.kv.CompareAndSwap(ctx, StateKey, raw, next)
		if err != nil {
			return fmt.Errorf("save generation state: %w", err)
		}
		if swapped {
			return nil
		}
		m.logger.Debug().Int("attempt", attempt).Msg("generation: state changed during update; retrying")
	}
	return fmt.Errorf("save generation state: %w", errStateContention)
}

// UpdateProgress merges step counters into the state. total <= 0 keeps the
// stored total; TotalSteps is raised so CurrentStep never exceeds it. The
// status is left as stored.
func (m *StateManager) UpdateProgress(ctx context.Context, current, total int, phase string) error {
	return m.mutate(ctx, progressUpdate(current, total, phase))
}

func progressUpdate(current, total int, phase string) func(*domain.GenerationState) error {
	if current < 0 {
		current = 0
	}
	return func(s *domain.GenerationState) error {
		if total > 0 {
			s.TotalSteps = total
		}
		s.CurrentStep = current
		if s.CurrentStep > s.TotalSteps {
			s.TotalSteps = s.CurrentStep
		}
		if phase != "" {
			s.CurrentPhase = phase
		}
		return nil
	}
}

// UpdateStatus sets status after validating it.
func (m *StateManager) UpdateStatus(ctx context.Context, status domain.GenerationStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	return m.mutate(ctx, func(s *domain.GenerationState) error {
		s.Status = status
		return nil
	})
}

// SetError moves the run into the error state. CurrentStep is kept.
func (m *StateManager) SetError(ctx context.Context, message string) error {
	m.logger.Error().Str("error", message).Msg("generation: run failed")
	return m.mutate(ctx, func(s *domain.GenerationState) error {
		s.Status = domain.StatusError
		s.LastError = message
		return nil
	})
}

// MarkComplete finishes the run.
func (m *StateManager) MarkComplete(ctx context.Context) error {
	return m.mutate(ctx, func(s *domain.GenerationState) error {
		now := m.now().UTC()
		s.Status = domain.StatusComplete
		s.CompletedAt = &now
		return nil
	})
}

// StartGeneration resets the checkpoint for a fresh run.
func (m *StateManager) StartGeneration(ctx context.Context, totalSteps int, identity domain.Identity) error {
	if totalSteps < 0 {
		totalSteps = 0
	}
	now := m.now().UTC()
	return m.SaveState(ctx, domain.GenerationState{
		Status:       domain.StatusGeneratingIdentity,
		Identity:     identity,
		CurrentStep:  0,
		TotalSteps:   totalSteps,
		CurrentPhase: PhaseIdentity,
		StartedAt:    &now,
	})
}

// IsGenerating reports whether a run is underway: any non-idle, non-terminal
// status, paused included.
func (m *StateManager) IsGenerating(ctx context.Context) (bool, error) {
	state, err := m.GetState(ctx)
	if err != nil {
		return false, err
	}
	return state.Status.Active(), nil
}

// Pause flips an in-progress run to paused. Running loops observe it between
// items.
func (m *StateManager) Pause(ctx context.Context) error {
	return m.mutate(ctx, func(s *domain.GenerationState) error {
		if !s.Status.InProgress() {
			return fmt.Errorf("%w: cannot pause from %s", domain.ErrInvalidTransition, s.Status)
		}
		s.Status = domain.StatusPaused
		return nil
	})
}

// Resume restores the in-progress status owning CurrentStep.
func (m *StateManager) Resume(ctx context.Context) (domain.GenerationStatus, error) {
	var resumed domain.GenerationStatus
	err := m.mutate(ctx, func(s *domain.GenerationState) error {
		if s.Status != domain.StatusPaused {
			return fmt.Errorf("%w: cannot resume from %s", domain.ErrInvalidTransition, s.Status)
		}
		resumed = m.plan.PhaseFor(s.CurrentStep)
		s.Status = resumed
		return nil
	})
	if err != nil {
		return "", err
	}
	return resumed, nil
}

// Cancel drops the checkpoint entirely.
func (m *StateManager) Cancel(ctx context.Context) error {
	if err := m.kv.Delete(ctx, StateKey); err != nil {
		return fmt.Errorf("delete generation state: %w", err)
	}
	return nil
}

// RecordFailedSpecs replaces identity._metadata.failed_specs.
func (m *StateManager) RecordFailedSpecs(ctx context.Context, ids []string) error {
	return m.mutate(ctx, func(s *domain.GenerationState) error {
		s.Identity.Metadata.FailedSpecs = append([]string{}, ids...)
		return nil
	})
}

// FailedSpecIDs returns the failed spec ids of the most recent content run.
func (m *StateManager) FailedSpecIDs(ctx context.Context) ([]string, error) {
	state, err := m.GetState(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{}, state.Identity.Metadata.FailedSpecs...), nil
}

// advancePhase moves an in-progress run to the next phase. A run paused or
// cancelled in the meantime is left alone.
func (m *StateManager) advancePhase(ctx context.Context, next domain.GenerationStatus, step int, phase string) error {
	return m.updateExisting(ctx, func(s *domain.GenerationState) error {
		switch {
		case s.Status == domain.StatusPaused:
			return domain.ErrPaused
		case !s.Status.InProgress():
			return domain.ErrCancelled
		}
		s.Status = next
		s.CurrentStep = step
		if s.CurrentStep > s.TotalSteps {
			s.TotalSteps = s.CurrentStep
		}
		s.CurrentPhase = phase
		return nil
	})
}

// checkpoint records per-item progress of a loop. failedSpecs, when non-nil,
// replaces identity._metadata.failed_specs in the same write. A loop that
// started on a persisted run writes nothing once that run is cancelled.
// Failures are logged so a flaky store never fails an item that already
// succeeded.
func (m *StateManager) checkpoint(ctx context.Context, tracked bool, step int, phase string, failedSpecs []string) {
	progress := progressUpdate(step, 0, phase)
	err := m.update(ctx, !tracked, func(s *domain.GenerationState) error {
		if failedSpecs != nil {
			s.Identity.Metadata.FailedSpecs = append([]string{}, failedSpecs...)
		}
		return progress(s)
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCancelled):
		m.logger.Debug().Int("step", step).Msg("generation: run cancelled; checkpoint skipped")
	default:
		m.logger.Warn().Err(err).Int("step", step).Str("phase", phase).Msg("generation: progress checkpoint failed")
	}
}

// recordFailures replaces the failed spec or image list at the end of a
// loop. Like checkpoint, a cancelled run is not recreated.
func (m *StateManager) recordFailures(ctx context.Context, tracked bool, specs, images []string) error {
	err := m.update(ctx, !tracked, func(s *domain.GenerationState) error {
		if specs != nil {
			s.Identity.Metadata.FailedSpecs = append([]string{}, specs...)
		}
		if images != nil {
			s.Identity.Metadata.FailedImages = append([]string{}, images...)
		}
		return nil
	})
	if errors.Is(err, domain.ErrCancelled) {
		return nil
	}
	return err
}
