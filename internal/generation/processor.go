package generation

import (
	"context"
	"fmt"
	"time"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	imageprovider "sitegen/internal/providers/image"
	"sitegen/internal/ratelimit"
)

// ImageOptions tunes the image phase.
type ImageOptions struct {
	// ItemDelay is applied after every item regardless of outcome.
	ItemDelay time.Duration
}

// ImageProcessor drains the image queue.
type ImageProcessor struct {
	collector *ImageCollector
	images    imageprovider.Generator
	assets    domain.AssetStore
	state     *StateManager
	opts      ImageOptions
	logger    infra.Logger
	sleep     ratelimit.SleepFunc
	now       func() time.Time
}

// NewImageProcessor wires the image phase collaborators. images is expected
// to carry its own rate limiting.
func NewImageProcessor(
	collector *ImageCollector,
	images imageprovider.Generator,
	assets domain.AssetStore,
	state *StateManager,
	opts ImageOptions,
	logger *infra.Logger,
) *ImageProcessor {
	return &ImageProcessor{
		collector: collector,
		images:    images,
		assets:    assets,
		state:     state,
		opts:      opts,
		logger:    infra.EnsureLogger(logger),
		sleep:     ratelimit.Sleep,
		now:       time.Now,
	}
}

// ProcessQueue generates every pending item.
func (p *ImageProcessor) ProcessQueue(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error) {
	ids, err := p.collector.PendingIDs(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := p.collector.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	// Items finished by an earlier batch keep their steps.
	return p.process(ctx, identity, ids, stats.Complete+stats.Failed, false, cb)
}

// RetryFailed regenerates only the items currently marked failed.
func (p *ImageProcessor) RetryFailed(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error) {
	ids, err := p.collector.FailedIDs(ctx)
	if err != nil {
		return nil, err
	}
	return p.process(ctx, identity, ids, 0, true, cb)
}

func (p *ImageProcessor) process(ctx context.Context, identity domain.Identity, ids []string, done int, retrying bool, cb domain.ProgressFunc) (*domain.ImageBatchResult, error) {
	started := p.now()
	gate := newRunGate(ctx, p.state, p.logger)
	plan := p.state.Plan()
	base := plan.Identity + plan.Content
	result := &domain.ImageBatchResult{FailedIDs: []string{}}
	var stopErr error

	for i, id := range ids {
		if err := gate.check(ctx); err != nil {
			stopErr = err
			break
		}
		step := i + 1
		log := p.logger.With().Str("item_id", id).Int("step", step).Logger()

		resolved, err := p.processOne(ctx, identity, id)
		if err != nil && ctx.Err() != nil {
			stopErr = ctx.Err()
			break
		}
		if err != nil {
			result.Failed++
			result.FailedIDs = append(result.FailedIDs, id)
			log.Warn().Err(err).Msg("images: item failed")
			if markErr := p.collector.MarkFailed(ctx, id, err.Error()); markErr != nil {
				log.Error().Err(markErr).Msg("images: failure not recorded")
			}
		} else {
			result.Succeeded++
			result.DuplicatesResolved += resolved
		}

		if cb != nil {
			cb(domain.Progress{Phase: domain.StatusGeneratingImages, Step: step, Total: len(ids), ItemID: id, Failed: err != nil})
		}
		if !retrying {
			p.state.checkpoint(ctx, gate.tracked, base+done+step, PhaseImages, nil)
		}

		if err := p.sleep(ctx, p.opts.ItemDelay); err != nil {
			stopErr = err
			break
		}
	}
	result.Interrupted = stopErr != nil

	detached := context.WithoutCancel(ctx)
	if failed, err := p.collector.FailedIDs(detached); err == nil {
		if err := p.state.recordFailures(detached, gate.tracked, nil, failed); err != nil {
			p.logger.Error().Err(err).Msg("images: failed item list not recorded")
		}
	}
	result.ElapsedMS = p.now().Sub(started).Milliseconds()

	p.logger.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("duplicates_resolved", result.DuplicatesResolved).
		Bool("interrupted", result.Interrupted).
		Int64("elapsed_ms", result.ElapsedMS).
		Msg("images: batch finished")
	return result, stopErr
}

// processOne generates, stores and binds one item, then fans the media out
// to its duplicates. It returns the number of duplicates bound.
func (p *ImageProcessor) processOne(ctx context.Context, identity domain.Identity, id string) (int, error) {
	item, err := p.collector.Item(ctx, id)
	if err != nil {
		return 0, err
	}
	width, height, err := item.ImageSpec.Size()
	if err != nil {
		return 0, err
	}

	res, err := p.images.Generate(ctx, imageprovider.Request{
		Prompt:    item.ImageSpec.Prompt,
		Width:     width,
		Height:    height,
		Style:     item.ImageSpec.Style,
		RequestID: id,
	})
	if err != nil {
		return 0, fmt.Errorf("generate image: %w", err)
	}
	if res == nil || len(res.Data) == 0 {
		return 0, fmt.Errorf("generate image: %w: empty result", domain.ErrProviderFailure)
	}
	if fitted, err := imageprovider.Fit(res, width, height); err != nil {
		p.logger.Warn().Err(err).Str("item_id", id).Msg("images: resize failed; storing original")
	} else {
		res = fitted
	}

	mediaID, err := p.assets.Store(ctx, res.Data, res.MIME)
	if err != nil {
		return 0, fmt.Errorf("store image: %w", err)
	}
	alt := AltText(item.ContentSpecID, identity.Name)
	if err := p.assets.Bind(ctx, item.TargetEntityID, item.TargetField, mediaID, alt); err != nil {
		return 0, fmt.Errorf("bind image to %s.%s: %w", item.TargetEntityID, item.TargetField, err)
	}
	if err := p.collector.MarkProcessed(ctx, id, mediaID); err != nil {
		return 0, err
	}
	p.logger.Info().
		Str("item_id", id).
		Str("media_id", mediaID).
		Str("provider", res.Provider).
		Msg("images: item generated")

	return p.resolveDuplicates(ctx, identity, id, mediaID), nil
}

// resolveDuplicates binds mediaID to every alias of id. Bind failures are
// logged and the alias is kept.
func (p *ImageProcessor) resolveDuplicates(ctx context.Context, identity domain.Identity, id, mediaID string) int {
	aliases, err := p.collector.DuplicatesOf(ctx, id)
	if err != nil {
		p.logger.Warn().Err(err).Str("item_id", id).Msg("images: duplicates unreadable")
		return 0
	}
	bound := 0
	for _, alias := range aliases {
		alt := AltText(alias.Target.ContentSpecID, identity.Name)
		if err := p.assets.Bind(ctx, alias.Target.TargetEntityID, alias.Target.TargetField, mediaID, alt); err != nil {
			p.logger.Warn().
				Err(err).
				Str("item_id", id).
				Str("alias_id", alias.ID).
				Str("entity_id", alias.Target.TargetEntityID).
				Msg("images: duplicate bind failed; alias kept")
			continue
		}
		bound++
	}
	return bound
}
