package generation

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	_ "image/png"
	"strings"
	"testing"

	"sitegen/internal/domain"
	imageprovider "sitegen/internal/providers/image"
)

func collectTownHall(t *testing.T, h *harness) (string, string) {
	t.Helper()
	ctx := context.Background()
	img := domain.ImageSpecification{Type: "hero", Dimensions: "64x32", Prompt: "a photo of a modern town hall", TargetField: "field_hero_image"}
	a := specWithImages("about-us", img)
	b := specWithImages("visit-us", img)
	if _, err := h.collector.CollectFromContent(ctx, a, "entity-a", riverside()); err != nil {
		t.Fatal(err)
	}
	if _, err := h.collector.CollectFromContent(ctx, b, "entity-b", riverside()); err != nil {
		t.Fatal(err)
	}
	return ItemID("about-us", img), ItemID("visit-us", img)
}

func TestProcessQueueBindsOriginalAndDuplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	idA, idB := collectTownHall(t, h)

	result, err := h.images.ProcessQueue(ctx, riverside(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || result.Failed != 0 || result.DuplicatesResolved != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(h.gen.requests) != 1 || len(h.assets.stored) != 1 {
		t.Fatalf("generated %d, stored %d; want one each", len(h.gen.requests), len(h.assets.stored))
	}
	req := h.gen.requests[0]
	if req.Width != 64 || req.Height != 32 || req.RequestID != idA {
		t.Fatalf("request = %+v", req)
	}
	if len(h.assets.bindings) != 2 {
		t.Fatalf("bindings = %+v", h.assets.bindings)
	}
	first, second := h.assets.bindings[0], h.assets.bindings[1]
	if first.entityID != "entity-a" || second.entityID != "entity-b" || first.assetID != second.assetID {
		t.Fatalf("bindings = %+v", h.assets.bindings)
	}
	if first.alt != "About Us image for Riverside Borough Council" || second.alt != "Visit Us image for Riverside Borough Council" {
		t.Fatalf("alt texts = %q, %q", first.alt, second.alt)
	}
	media, ok, _ := h.collector.MediaID(ctx, idB)
	if !ok || media != first.assetID {
		t.Fatalf("alias media = %q", media)
	}
	if len(h.sleeps.delays) != 1 {
		t.Fatalf("item delay not applied: %v", h.sleeps.delays)
	}
}

func TestProcessQueueContinuesAfterFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := specWithImages("gallery",
		domain.ImageSpecification{Type: "hero", Dimensions: "32x32", Prompt: "flooded bridge"},
		domain.ImageSpecification{Type: "card", Dimensions: "32x32", Prompt: "market square"},
	)
	if _, err := h.collector.CollectFromContent(ctx, s, "entity-1", riverside()); err != nil {
		t.Fatal(err)
	}
	h.gen.fail = func(req imageprovider.Request) error {
		if strings.Contains(req.Prompt, "flooded") {
			return errors.New("content policy violation")
		}
		return nil
	}

	result, err := h.images.ProcessQueue(ctx, riverside(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || result.Failed != 1 || len(result.FailedIDs) != 1 {
		t.Fatalf("result = %+v", result)
	}
	item, _ := h.collector.Item(ctx, result.FailedIDs[0])
	if item.Status != domain.QueueItemFailed || !strings.Contains(item.Error, "content policy violation") {
		t.Fatalf("failed item = %+v", item)
	}
	if len(h.sleeps.delays) != 2 {
		t.Fatalf("delay must follow every item: %v", h.sleeps.delays)
	}
	st, _ := h.state.GetState(ctx)
	if len(st.Identity.Metadata.FailedImages) != 1 {
		t.Fatalf("failed images not recorded: %+v", st.Identity.Metadata)
	}
}

func TestRetryFailedImagesOnlyTouchesFailed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := specWithImages("gallery",
		domain.ImageSpecification{Type: "hero", Dimensions: "32x32", Prompt: "flooded bridge"},
		domain.ImageSpecification{Type: "card", Dimensions: "32x32", Prompt: "market square"},
	)
	_, _ = h.collector.CollectFromContent(ctx, s, "entity-1", riverside())
	h.gen.fail = func(req imageprovider.Request) error {
		if strings.Contains(req.Prompt, "flooded") {
			return errors.New("upstream timeout")
		}
		return nil
	}
	first, _ := h.images.ProcessQueue(ctx, riverside(), nil)
	completeID := ""
	ids, _ := h.collector.PendingIDs(ctx)
	if len(ids) != 0 {
		t.Fatalf("pending after pass = %v", ids)
	}
	q, _ := h.collector.Queue(ctx)
	for _, item := range q.Items {
		if item.Status == domain.QueueItemComplete {
			completeID = item.ID
		}
	}
	before, _ := h.collector.Item(ctx, completeID)

	h.gen.fail = nil
	h.gen.requests = nil
	result, err := h.images.RetryFailed(ctx, riverside(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || result.Failed != 0 {
		t.Fatalf("retry result = %+v", result)
	}
	if len(h.gen.requests) != 1 || h.gen.requests[0].RequestID != first.FailedIDs[0] {
		t.Fatalf("retry generated %+v", h.gen.requests)
	}
	after, _ := h.collector.Item(ctx, completeID)
	if after.MediaID != before.MediaID || after.Attempts != before.Attempts {
		t.Fatalf("complete item touched: %+v -> %+v", before, after)
	}
	stats, _ := h.collector.Statistics(ctx)
	if stats.Complete != 2 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDuplicateBindFailureDoesNotFailBatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	idA, idB := collectTownHall(t, h)
	h.assets.bindErr = func(entityID string) error {
		if entityID == "entity-b" {
			return domain.ErrNotFound
		}
		return nil
	}

	result, err := h.images.ProcessQueue(ctx, riverside(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Succeeded != 1 || result.DuplicatesResolved != 0 {
		t.Fatalf("result = %+v", result)
	}
	q, _ := h.collector.Queue(ctx)
	if q.Duplicates[idB] != idA {
		t.Fatal("alias must be kept after a failed bind")
	}
}

func TestPrimaryBindFailureMarksItemFailed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	idA, _ := collectTownHall(t, h)
	h.assets.bindErr = func(entityID string) error {
		return domain.ErrNotFound
	}
	result, _ := h.images.ProcessQueue(ctx, riverside(), nil)
	if result.Failed != 1 || result.FailedIDs[0] != idA {
		t.Fatalf("result = %+v", result)
	}
}

func TestProcessorResizesToRequestedDimensions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	collectTownHall(t, h)
	h.gen.size = func(req imageprovider.Request) (int, int) { return 16, 16 }

	if _, err := h.images.ProcessQueue(ctx, riverside(), nil); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(h.assets.stored[0]))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 64 || cfg.Height != 32 {
		t.Fatalf("stored %dx%d, want 64x32", cfg.Width, cfg.Height)
	}
}

func TestProcessorMirrorsProgress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	collectTownHall(t, h)
	_ = h.state.StartGeneration(ctx, 3, riverside())
	_ = h.state.UpdateStatus(ctx, domain.StatusGeneratingImages)

	var seen []domain.Progress
	if _, err := h.images.ProcessQueue(ctx, riverside(), func(p domain.Progress) { seen = append(seen, p) }); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0].Phase != domain.StatusGeneratingImages || seen[0].Total != 1 {
		t.Fatalf("progress = %+v", seen)
	}
	st, _ := h.state.GetState(ctx)
	// identity (1) + content (0 specs) + first image
	if st.CurrentStep != 2 || st.CurrentPhase != PhaseImages {
		t.Fatalf("state = %+v", st)
	}
}

func TestProcessorStepCountsEarlierBatches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := specWithImages("gallery",
		domain.ImageSpecification{Type: "hero", Dimensions: "32x32", Prompt: "flooded bridge"},
		domain.ImageSpecification{Type: "card", Dimensions: "32x32", Prompt: "market square"},
	)
	if _, err := h.collector.CollectFromContent(ctx, s, "entity-1", riverside()); err != nil {
		t.Fatal(err)
	}
	pending, _ := h.collector.PendingIDs(ctx)
	if err := h.collector.MarkProcessed(ctx, pending[0], "media-1"); err != nil {
		t.Fatal(err)
	}
	_ = h.state.StartGeneration(ctx, 4, riverside())
	_ = h.state.UpdateStatus(ctx, domain.StatusGeneratingImages)

	if _, err := h.images.ProcessQueue(ctx, riverside(), nil); err != nil {
		t.Fatal(err)
	}
	st, _ := h.state.GetState(ctx)
	// identity (1) + content (0 specs) + one earlier image + this one
	if st.CurrentStep != 3 {
		t.Fatalf("step = %d, want 3", st.CurrentStep)
	}
}

func TestAltText(t *testing.T) {
	tests := []struct {
		spec, name, want string
	}{
		{"homepage-welcome", "Riverside Borough Council", "Homepage Welcome image for Riverside Borough Council"},
		{"news_item", "", "News Item image"},
		{"", "Riverside", "Image for Riverside"},
		{"", "", "Generated image"},
	}
	for _, tt := range tests {
		if got := AltText(tt.spec, tt.name); got != tt.want {
			t.Errorf("AltText(%q, %q) = %q, want %q", tt.spec, tt.name, got, tt.want)
		}
	}
}
