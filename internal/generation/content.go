package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	textprovider "sitegen/internal/providers/text"
	"sitegen/internal/ratelimit"
	"sitegen/internal/templates"
)

// ContentOptions tunes the content phase.
type ContentOptions struct {
	Model string
	// MaxAttempts bounds calls per item when the provider throttles.
	MaxAttempts int
	// RetryBase is the first throttle back-off; attempt k waits
	// RetryBase * 2^(k-1).
	RetryBase time.Duration
	// ItemDelay is applied after every item regardless of outcome.
	ItemDelay time.Duration
}

// ContentOrchestrator runs the content phase.
type ContentOrchestrator struct {
	templates domain.TemplateSource
	text      textprovider.Generator
	entities  domain.EntityStore
	collector *ImageCollector
	state     *StateManager
	opts      ContentOptions
	logger    infra.Logger
	sleep     ratelimit.SleepFunc
	now       func() time.Time
}

// NewContentOrchestrator wires the content phase collaborators.
func NewContentOrchestrator(
	source domain.TemplateSource,
	gen textprovider.Generator,
	entities domain.EntityStore,
	collector *ImageCollector,
	state *StateManager,
	opts ContentOptions,
	logger *infra.Logger,
) *ContentOrchestrator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &ContentOrchestrator{
		templates: source,
		text:      gen,
		entities:  entities,
		collector: collector,
		state:     state,
		opts:      opts,
		logger:    infra.EnsureLogger(logger),
		sleep:     ratelimit.Sleep,
		now:       time.Now,
	}
}

type contentRun struct {
	specs    []domain.ContentSpecification
	offset   int
	total    int
	retrying bool
	// carried failures survive a resumed pass.
	carried []string
}

// GenerateAll processes every template in ascending order.
func (o *ContentOrchestrator) GenerateAll(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error) {
	return o.GenerateFrom(ctx, identity, 0, cb)
}

// GenerateFrom resumes the content phase at the start-th template. Failures
// recorded before start are kept.
func (o *ContentOrchestrator) GenerateFrom(ctx context.Context, identity domain.Identity, start int, cb domain.ProgressFunc) (*domain.GenerationSummary, error) {
	specs, err := o.templates.TemplatesInOrder(ctx)
	if err != nil {
		return nil, o.fail(ctx, fmt.Errorf("load templates: %w", err))
	}
	if start < 0 {
		start = 0
	}
	if start > len(specs) {
		start = len(specs)
	}
	run := contentRun{specs: specs[start:], offset: start, total: len(specs)}
	if start > 0 {
		carried, err := o.state.FailedSpecIDs(ctx)
		if err != nil {
			o.logger.Warn().Err(err).Msg("content: failed spec list unreadable; starting fresh")
		}
		run.carried = carried
	}
	return o.run(ctx, identity, run, cb)
}

// RetryFailed reprocesses only the specs recorded as failed by the previous
// content pass and replaces that list with the new outcome.
func (o *ContentOrchestrator) RetryFailed(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error) {
	ids, err := o.state.FailedSpecIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids = identity.Metadata.FailedSpecs
	}

	run := contentRun{retrying: true}
	skipped := 0
	for _, id := range ids {
		spec, err := o.templates.Template(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				o.logger.Warn().Str("spec_id", id).Msg("content: failed spec no longer exists; dropping")
				skipped++
				continue
			}
			return nil, o.fail(ctx, fmt.Errorf("resolve template %s: %w", id, err))
		}
		run.specs = append(run.specs, *spec)
	}
	run.total = len(run.specs)

	summary, err := o.run(ctx, identity, run, cb)
	if summary != nil {
		summary.Skipped += skipped
	}
	return summary, err
}

func (o *ContentOrchestrator) run(ctx context.Context, identity domain.Identity, run contentRun, cb domain.ProgressFunc) (*domain.GenerationSummary, error) {
	started := o.now()
	if checker, ok := o.text.(textprovider.Checker); ok && len(run.specs) > 0 {
		if err := checker.Check(ctx); err != nil {
			return nil, o.fail(ctx, fmt.Errorf("%w: text capability unavailable: %v", domain.ErrProviderFailure, err))
		}
	}

	gate := newRunGate(ctx, o.state, o.logger)
	base := o.state.Plan().Identity
	vars := identity.Variables()
	summary := &domain.GenerationSummary{FailedSpecIDs: []string{}}
	var stopErr error
	remaining := 0

	for i, spec := range run.specs {
		if err := gate.check(ctx); err != nil {
			stopErr = err
			remaining = i
			break
		}
		step := run.offset + i + 1
		log := o.logger.With().Str("spec_id", spec.ID).Int("step", step).Logger()

		entityID, err := o.generateOne(ctx, identity, vars, spec)
		if err != nil && ctx.Err() != nil {
			stopErr = ctx.Err()
			remaining = i
			break
		}
		if err != nil {
			summary.Failed++
			summary.FailedSpecIDs = append(summary.FailedSpecIDs, spec.ID)
			log.Warn().Err(err).Str("class", failureClass(err)).Msg("content: item failed")
		} else {
			summary.Succeeded++
			log.Info().Str("entity_id", entityID).Msg("content: item generated")
		}

		if cb != nil {
			cb(domain.Progress{Phase: domain.StatusGeneratingContent, Step: step, Total: run.offset + run.total, ItemID: spec.ID, Failed: err != nil})
		}
		if !run.retrying {
			// Failures ride along with the step so a crash never skips them.
			o.state.checkpoint(ctx, gate.tracked, base+step, PhaseContent, mergeIDs(run.carried, summary.FailedSpecIDs))
		}

		if err := o.sleep(ctx, o.opts.ItemDelay); err != nil {
			stopErr = err
			remaining = i + 1
			break
		}
	}

	failed := mergeIDs(run.carried, summary.FailedSpecIDs)
	if stopErr != nil {
		summary.Interrupted = true
		if run.retrying {
			// Unprocessed retries stay eligible for the next retry.
			for _, spec := range run.specs[remaining:] {
				failed = mergeIDs(failed, []string{spec.ID})
			}
		}
	}
	// Record with a detached context so a cancelled run still checkpoints.
	if err := o.state.recordFailures(context.WithoutCancel(ctx), gate.tracked, failed, nil); err != nil {
		o.logger.Error().Err(err).Msg("content: failed spec list not recorded")
	}
	summary.ElapsedMS = o.now().Sub(started).Milliseconds()

	o.logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Bool("interrupted", summary.Interrupted).
		Int64("elapsed_ms", summary.ElapsedMS).
		Msg("content: pass finished")
	return summary, stopErr
}

func (o *ContentOrchestrator) generateOne(ctx context.Context, identity domain.Identity, vars map[string]string, spec domain.ContentSpecification) (string, error) {
	if missing := templates.Missing(spec.Prompt, vars); len(missing) > 0 {
		o.logger.Debug().Str("spec_id", spec.ID).Strs("missing", missing).Msg("content: prompt has unresolved placeholders")
	}
	prompt := templates.Render(spec.Prompt, vars)
	title := templates.Render(spec.TitleTemplate, vars)

	resp, err := o.generateWithRetry(ctx, spec.ID, textprovider.Request{
		Prompt: prompt,
		Model:  o.opts.Model,
		JSON:   true,
		Keys:   spec.ContentKeys(),
	})
	if err != nil {
		return "", err
	}
	content, err := parseContent(resp.Text)
	if err != nil {
		return "", err
	}

	entityID, err := o.entities.Create(ctx, spec.ContentType, mapFields(spec, content, title))
	if err != nil {
		return "", fmt.Errorf("create entity: %w", err)
	}

	if o.collector != nil && len(spec.Images) > 0 {
		if _, err := o.collector.CollectFromContent(ctx, spec, entityID, identity); err != nil {
			// The entity exists; failing the item would duplicate it on retry.
			o.logger.Error().Err(err).Str("spec_id", spec.ID).Str("entity_id", entityID).Msg("content: image collection failed")
		}
	}
	return entityID, nil
}

func (o *ContentOrchestrator) generateWithRetry(ctx context.Context, specID string, req textprovider.Request) (*textprovider.Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := o.text.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || !isThrottle(err) || attempt >= o.opts.MaxAttempts {
			return nil, err
		}
		delay := o.opts.RetryBase * time.Duration(1<<(attempt-1))
		o.logger.Warn().
			Err(err).
			Str("spec_id", specID).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("content: throttled, backing off")
		if err := o.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// fail moves the run to the error state for phase-wide precondition failures.
func (o *ContentOrchestrator) fail(ctx context.Context, err error) error {
	if setErr := o.state.SetError(context.WithoutCancel(ctx), err.Error()); setErr != nil {
		o.logger.Error().Err(setErr).Msg("content: error state not recorded")
	}
	return err
}

func failureClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed_response"
	case isThrottle(err):
		return "throttled"
	default:
		return "error"
	}
}

func mergeIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
