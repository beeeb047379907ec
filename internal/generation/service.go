package generation

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
)

// PipelineLock names the persistence lock shared by every mutating run.
const PipelineLock = "sitegen:pipeline"

// StartOptions configures a fresh run.
type StartOptions struct {
	Identity domain.Identity
	// TotalSteps defaults to the step plan total.
	TotalSteps int
}

// RunReport aggregates what Continue executed.
type RunReport struct {
	Status  domain.GenerationStatus   `json:"status"`
	Content *domain.GenerationSummary `json:"content,omitempty"`
	Images  *domain.ImageBatchResult  `json:"images,omitempty"`
}

// Service is the facade exposed to the API, the CLI and the worker.
// Mutating runs are serialised in-process by singleflight and across
// processes by the persistence lock; contention yields domain.ErrLocked.
type Service struct {
	state     *StateManager
	content   *ContentOrchestrator
	collector *ImageCollector
	images    *ImageProcessor
	locker    domain.Locker
	group     singleflight.Group
	logger    infra.Logger
}

// NewService assembles the pipeline. locker may be nil for single-process
// use.
func NewService(
	state *StateManager,
	content *ContentOrchestrator,
	collector *ImageCollector,
	images *ImageProcessor,
	locker domain.Locker,
	logger *infra.Logger,
) *Service {
	return &Service{
		state:     state,
		content:   content,
		collector: collector,
		images:    images,
		locker:    locker,
		logger:    infra.EnsureLogger(logger),
	}
}

// guard runs fn under the pipeline lock. Identical concurrent ops share one
// execution; different ops contend on the lock.
func guard[T any](ctx context.Context, s *Service, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err, shared := s.group.Do(op, func() (any, error) {
		if s.locker != nil {
			unlock, err := s.locker.TryLock(ctx, PipelineLock)
			if err != nil {
				return nil, err
			}
			defer unlock()
		}
		return fn(ctx)
	})
	if shared {
		s.logger.Debug().Str("op", op).Msg("generation: joined in-flight call")
	}
	out, _ := v.(T)
	return out, err
}

// StartGeneration begins a fresh run. It returns false when a run is already
// in progress. The image queue is cleared.
func (s *Service) StartGeneration(ctx context.Context, opts StartOptions) (bool, error) {
	return guard(ctx, s, "start", func(ctx context.Context) (bool, error) {
		generating, err := s.state.IsGenerating(ctx)
		if err != nil {
			return false, err
		}
		if generating {
			return false, nil
		}
		total := opts.TotalSteps
		if total <= 0 {
			total = s.state.Plan().Total()
		}
		if err := s.collector.Clear(ctx); err != nil {
			return false, err
		}
		if err := s.state.StartGeneration(ctx, total, opts.Identity); err != nil {
			return false, err
		}
		s.logger.Info().Str("identity", opts.Identity.Name).Int("total_steps", total).Msg("generation: started")
		return true, nil
	})
}

// Progress returns the checkpoint.
func (s *Service) Progress(ctx context.Context) (domain.GenerationState, error) {
	return s.state.GetState(ctx)
}

// Pause asks the running loop to stop after its current item.
func (s *Service) Pause(ctx context.Context) error {
	return s.state.Pause(ctx)
}

// Resume returns a paused run to the phase owning its current step.
func (s *Service) Resume(ctx context.Context) (domain.GenerationStatus, error) {
	return s.state.Resume(ctx)
}

// Cancel deletes the checkpoint. A running loop stops after its current item.
func (s *Service) Cancel(ctx context.Context) error {
	return s.state.Cancel(ctx)
}

// FailedSpecIDs lists content specs that failed on the last pass.
func (s *Service) FailedSpecIDs(ctx context.Context) ([]string, error) {
	return s.state.FailedSpecIDs(ctx)
}

// QueueStatistics summarises the image queue.
func (s *Service) QueueStatistics(ctx context.Context) (domain.QueueStatistics, error) {
	return s.collector.Statistics(ctx)
}

// GenerateAll runs the content phase over every template.
func (s *Service) GenerateAll(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error) {
	return guard(ctx, s, "generate_all", func(ctx context.Context) (*domain.GenerationSummary, error) {
		return s.content.GenerateAll(ctx, identity, cb)
	})
}

// RetryFailedContent reprocesses the failed content specs.
func (s *Service) RetryFailedContent(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error) {
	return guard(ctx, s, "retry_content", func(ctx context.Context) (*domain.GenerationSummary, error) {
		return s.content.RetryFailed(ctx, identity, cb)
	})
}

// ProcessImageQueue drains pending image requests.
func (s *Service) ProcessImageQueue(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error) {
	return guard(ctx, s, "process_images", func(ctx context.Context) (*domain.ImageBatchResult, error) {
		return s.images.ProcessQueue(ctx, identity, cb)
	})
}

// RetryFailedImages regenerates failed image requests.
func (s *Service) RetryFailedImages(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error) {
	return guard(ctx, s, "retry_images", func(ctx context.Context) (*domain.ImageBatchResult, error) {
		return s.images.RetryFailed(ctx, identity, cb)
	})
}

// Continue advances the persisted run through its remaining phases,
// resuming mid-phase from the checkpoint. Idle, paused and terminal runs are
// left untouched.
func (s *Service) Continue(ctx context.Context, cb domain.ProgressFunc) (*RunReport, error) {
	return guard(ctx, s, "continue", func(ctx context.Context) (*RunReport, error) {
		return s.advance(ctx, cb)
	})
}

func (s *Service) advance(ctx context.Context, cb domain.ProgressFunc) (*RunReport, error) {
	report := &RunReport{}
	plan := s.state.Plan()
	for {
		st, err := s.state.GetState(ctx)
		if err != nil {
			return report, err
		}
		report.Status = st.Status

		switch st.Status {
		case domain.StatusGeneratingIdentity:
			if err := s.finishIdentity(ctx, st.Identity, plan); err != nil {
				return report, s.abort(ctx, err)
			}

		case domain.StatusGeneratingContent:
			start := st.CurrentStep - plan.Identity
			summary, err := s.content.GenerateFrom(ctx, st.Identity, start, cb)
			report.Content = summary
			if err != nil {
				return report, s.abort(ctx, err)
			}
			if err := s.enter(ctx, domain.StatusGeneratingImages, plan.Identity+plan.Content, PhaseImages); err != nil {
				return report, err
			}

		case domain.StatusGeneratingImages:
			result, err := s.images.ProcessQueue(ctx, st.Identity, cb)
			report.Images = result
			if err != nil {
				return report, s.abort(ctx, err)
			}
			if err := s.state.MarkComplete(ctx); err != nil {
				return report, err
			}
			report.Status = domain.StatusComplete
			s.logger.Info().Msg("generation: run complete")
			return report, nil

		default:
			return report, nil
		}
	}
}

func (s *Service) finishIdentity(ctx context.Context, identity domain.Identity, plan domain.StepPlan) error {
	if identity.Name == "" {
		return fmt.Errorf("identity name is required")
	}
	s.logger.Info().Str("identity", identity.Name).Int("profile_keys", len(identity.Profile)).Msg("generation: identity ready")
	return s.enter(ctx, domain.StatusGeneratingContent, plan.Identity, PhaseContent)
}

func (s *Service) enter(ctx context.Context, status domain.GenerationStatus, step int, phase string) error {
	return s.state.advancePhase(ctx, status, step, phase)
}

// abort records err as the run error unless the run was stopped on purpose.
func (s *Service) abort(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrPaused) || errors.Is(err, domain.ErrCancelled) || ctx.Err() != nil {
		return err
	}
	st, getErr := s.state.GetState(ctx)
	if getErr == nil && st.Status == domain.StatusError {
		return err
	}
	if setErr := s.state.SetError(ctx, err.Error()); setErr != nil {
		s.logger.Error().Err(setErr).Msg("generation: error state not recorded")
	}
	return err
}
