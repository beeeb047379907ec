package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/templates"
)

// QueueKey is the key-value key holding the image queue document.
const QueueKey = "sitegen:image_queue"

// ImageCollector accumulates image requests emitted by the content phase and
// deduplicates them by rendered content.
type ImageCollector struct {
	kv     domain.KeyValueStore
	logger infra.Logger
	now    func() time.Time
}

// NewImageCollector builds a collector persisting through kv.
func NewImageCollector(kv domain.KeyValueStore, logger *infra.Logger) *ImageCollector {
	return &ImageCollector{kv: kv, logger: infra.EnsureLogger(logger), now: time.Now}
}

// Alias is a duplicate request bound to another item's media.
type Alias struct {
	ID     string
	Target domain.DuplicateTarget
}

// ItemID identifies one image request of one content spec.
func ItemID(contentSpecID string, img domain.ImageSpecification) string {
	return digest(contentSpecID, img.Type, img.Dimensions, normalizePrompt(img.Prompt))
}

// DedupHash identifies the rendered image regardless of which spec asked
// for it.
func DedupHash(img domain.ImageSpecification) string {
	return digest(img.Type, img.Dimensions, normalizePrompt(img.Prompt))
}

func digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func normalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
}

// CollectFromContent renders and enqueues every image spec declared by spec
// for entityID. It returns the number of new queue items.
func (c *ImageCollector) CollectFromContent(ctx context.Context, spec domain.ContentSpecification, entityID string, identity domain.Identity) (int, error) {
	if len(spec.Images) == 0 {
		return 0, nil
	}
	queue, err := c.load(ctx)
	if err != nil {
		return 0, err
	}

	vars := identity.Variables()
	now := c.now().UTC()
	added, aliased := 0, 0
	for idx, img := range spec.Images {
		rendered := img
		rendered.Prompt = templates.Render(img.Prompt, vars)
		id := ItemID(spec.ID, rendered)
		field := targetField(img, idx)

		if _, ok := queue.Find(id); ok {
			continue
		}
		if _, ok := queue.Duplicates[id]; ok {
			continue
		}
		if original := findByHash(queue, DedupHash(rendered), id); original != "" {
			queue.Duplicates[id] = original
			queue.DuplicateTargets[id] = domain.DuplicateTarget{
				ContentSpecID:  spec.ID,
				TargetEntityID: entityID,
				TargetField:    field,
			}
			aliased++
			c.logger.Debug().
				Str("spec_id", spec.ID).
				Str("item_id", id).
				Str("original_id", original).
				Msg("image request aliased to existing item")
			continue
		}

		queue.Items = append(queue.Items, domain.ImageQueueItem{
			ID:             id,
			ContentSpecID:  spec.ID,
			ImageSpec:      rendered,
			TargetEntityID: entityID,
			TargetField:    field,
			Status:         domain.QueueItemPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		added++
	}

	if added == 0 && aliased == 0 {
		return 0, nil
	}
	if err := c.save(ctx, queue); err != nil {
		return 0, err
	}
	c.logger.Info().
		Str("spec_id", spec.ID).
		Int("queued", added).
		Int("aliased", aliased).
		Msg("image requests collected")
	return added, nil
}

func findByHash(queue *domain.ImageQueue, hash, exclude string) string {
	for _, item := range queue.Items {
		if item.ID == exclude {
			continue
		}
		if DedupHash(item.ImageSpec) == hash {
			return item.ID
		}
	}
	return ""
}

func targetField(img domain.ImageSpecification, idx int) string {
	if field := strings.TrimSpace(img.TargetField); field != "" {
		return field
	}
	kind := strings.ToLower(strings.TrimSpace(img.Type))
	if kind == "" {
		return fmt.Sprintf("field_image_%d", idx)
	}
	return "field_" + kind + "_image"
}

// Queue returns the persisted queue document.
func (c *ImageCollector) Queue(ctx context.Context) (*domain.ImageQueue, error) {
	return c.load(ctx)
}

// Statistics counts queue items by status.
func (c *ImageCollector) Statistics(ctx context.Context) (domain.QueueStatistics, error) {
	queue, err := c.load(ctx)
	if err != nil {
		return domain.QueueStatistics{}, err
	}
	stats := domain.QueueStatistics{Total: len(queue.Items), Duplicates: len(queue.Duplicates)}
	for _, item := range queue.Items {
		switch item.Status {
		case domain.QueueItemPending:
			stats.Pending++
		case domain.QueueItemComplete:
			stats.Complete++
		case domain.QueueItemFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// Clear removes the whole queue, aliases included.
func (c *ImageCollector) Clear(ctx context.Context) error {
	if err := c.kv.Delete(ctx, QueueKey); err != nil {
		return fmt.Errorf("clear image queue: %w", err)
	}
	return nil
}

// MarkProcessed completes id with mediaID. Unknown ids are logged only.
func (c *ImageCollector) MarkProcessed(ctx context.Context, id, mediaID string) error {
	return c.update(ctx, id, func(item *domain.ImageQueueItem) {
		item.Status = domain.QueueItemComplete
		item.MediaID = mediaID
		item.Error = ""
	})
}

// MarkFailed records the failure of id. Unknown ids are logged only.
func (c *ImageCollector) MarkFailed(ctx context.Context, id, message string) error {
	return c.update(ctx, id, func(item *domain.ImageQueueItem) {
		item.Status = domain.QueueItemFailed
		item.Error = message
	})
}

func (c *ImageCollector) update(ctx context.Context, id string, fn func(*domain.ImageQueueItem)) error {
	queue, err := c.load(ctx)
	if err != nil {
		return err
	}
	item, ok := queue.Find(id)
	if !ok {
		c.logger.Warn().Str("item_id", id).Msg("image queue item not found; update ignored")
		return nil
	}
	fn(item)
	item.Attempts++
	item.UpdatedAt = c.now().UTC()
	return c.save(ctx, queue)
}

// MediaID resolves id, following at most one alias hop, to its media id.
func (c *ImageCollector) MediaID(ctx context.Context, id string) (string, bool, error) {
	queue, err := c.load(ctx)
	if err != nil {
		return "", false, err
	}
	if original, ok := queue.Duplicates[id]; ok {
		id = original
	}
	item, ok := queue.Find(id)
	if !ok || item.MediaID == "" {
		return "", false, nil
	}
	return item.MediaID, true, nil
}

// PendingIDs lists pending items in insertion order.
func (c *ImageCollector) PendingIDs(ctx context.Context) ([]string, error) {
	queue, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return queue.IDsWithStatus(domain.QueueItemPending), nil
}

// FailedIDs lists failed items in insertion order.
func (c *ImageCollector) FailedIDs(ctx context.Context) ([]string, error) {
	queue, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return queue.IDsWithStatus(domain.QueueItemFailed), nil
}

// Item returns a copy of the queue item id.
func (c *ImageCollector) Item(ctx context.Context, id string) (domain.ImageQueueItem, error) {
	queue, err := c.load(ctx)
	if err != nil {
		return domain.ImageQueueItem{}, err
	}
	item, ok := queue.Find(id)
	if !ok {
		return domain.ImageQueueItem{}, fmt.Errorf("image queue item %s: %w", id, domain.ErrNotFound)
	}
	return *item, nil
}

// DuplicatesOf lists the aliases pointing at id, sorted by alias id.
func (c *ImageCollector) DuplicatesOf(ctx context.Context, id string) ([]Alias, error) {
	queue, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []Alias
	for alias, original := range queue.Duplicates {
		if original != id {
			continue
		}
		out = append(out, Alias{ID: alias, Target: queue.DuplicateTargets[alias]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *ImageCollector) load(ctx context.Context) (*domain.ImageQueue, error) {
	raw, err := c.kv.Get(ctx, QueueKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewImageQueue(), nil
		}
		return nil, fmt.Errorf("load image queue: %w", err)
	}
	queue := domain.NewImageQueue()
	if err := json.Unmarshal(raw, queue); err != nil {
		return nil, fmt.Errorf("decode image queue: %w", err)
	}
	if queue.Duplicates == nil {
		queue.Duplicates = map[string]string{}
	}
	if queue.DuplicateTargets == nil {
		queue.DuplicateTargets = map[string]domain.DuplicateTarget{}
	}
	return queue, nil
}

func (c *ImageCollector) save(ctx context.Context, queue *domain.ImageQueue) error {
	raw, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("encode image queue: %w", err)
	}
	if err := c.kv.Set(ctx, QueueKey, raw); err != nil {
		return fmt.Errorf("save image queue: %w", err)
	}
	return nil
}
