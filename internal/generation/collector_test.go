package generation

import (
	"context"
	"testing"

	"sitegen/internal/domain"
)

func specWithImages(id string, images ...domain.ImageSpecification) domain.ContentSpecification {
	s := spec(id, 1)
	s.Images = images
	return s
}

func TestCollectFromContentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := NewImageCollector(newMemKV(), nil)
	s := specWithImages("homepage", heroImage("A photo of {{council_name}} town hall"))

	if n, err := c.CollectFromContent(ctx, s, "entity-1", riverside()); err != nil || n != 1 {
		t.Fatalf("first collect = %d, %v", n, err)
	}
	if n, err := c.CollectFromContent(ctx, s, "entity-1", riverside()); err != nil || n != 0 {
		t.Fatalf("second collect = %d, %v", n, err)
	}
	q, _ := c.Queue(ctx)
	if len(q.Items) != 1 || len(q.Duplicates) != 0 {
		t.Fatalf("queue changed on resubmit: %+v", q)
	}
	if q.Items[0].ImageSpec.Prompt != "A photo of Riverside Borough Council town hall" {
		t.Fatalf("prompt not rendered: %q", q.Items[0].ImageSpec.Prompt)
	}
}

func TestCollectDeduplicatesAcrossSpecs(t *testing.T) {
	ctx := context.Background()
	c := NewImageCollector(newMemKV(), nil)
	img := domain.ImageSpecification{Type: "hero", Dimensions: "1024x1024", Prompt: "a photo of a modern town hall"}
	a := specWithImages("A", img)
	b := specWithImages("B", img)

	if _, err := c.CollectFromContent(ctx, a, "entity-a", riverside()); err != nil {
		t.Fatal(err)
	}
	if n, err := c.CollectFromContent(ctx, b, "entity-b", riverside()); err != nil || n != 0 {
		t.Fatalf("duplicate collect = %d, %v", n, err)
	}

	q, _ := c.Queue(ctx)
	if len(q.Items) != 1 {
		t.Fatalf("queue size = %d, want 1", len(q.Items))
	}
	idA, idB := ItemID("A", img), ItemID("B", img)
	if len(q.Duplicates) != 1 || q.Duplicates[idB] != idA {
		t.Fatalf("alias map = %v, want %s -> %s", q.Duplicates, idB, idA)
	}
	target := q.DuplicateTargets[idB]
	if target.TargetEntityID != "entity-b" || target.ContentSpecID != "B" || target.TargetField != "field_hero_image" {
		t.Fatalf("duplicate target = %+v", target)
	}

	if err := c.MarkProcessed(ctx, idA, "M"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{idA, idB} {
		media, ok, err := c.MediaID(ctx, id)
		if err != nil || !ok || media != "M" {
			t.Fatalf("MediaID(%s) = %q, %v, %v", id, media, ok, err)
		}
	}

	// Re-collecting the alias is a no-op.
	if n, err := c.CollectFromContent(ctx, b, "entity-b", riverside()); err != nil || n != 0 {
		t.Fatalf("alias recollect = %d, %v", n, err)
	}
	q, _ = c.Queue(ctx)
	if len(q.Items) != 1 || len(q.Duplicates) != 1 {
		t.Fatalf("alias recollect changed queue: %+v", q)
	}
}

func TestDedupNormalisesPrompt(t *testing.T) {
	ctx := context.Background()
	c := NewImageCollector(newMemKV(), nil)
	a := specWithImages("A", domain.ImageSpecification{Type: "hero", Dimensions: "1024x1024", Prompt: "A Photo of a  modern\ttown hall "})
	b := specWithImages("B", domain.ImageSpecification{Type: "hero", Dimensions: "1024x1024", Prompt: "a photo of a modern town hall"})
	other := specWithImages("C", domain.ImageSpecification{Type: "card", Dimensions: "1024x1024", Prompt: "a photo of a modern town hall"})

	for _, s := range []domain.ContentSpecification{a, b, other} {
		if _, err := c.CollectFromContent(ctx, s, "entity-"+s.ID, riverside()); err != nil {
			t.Fatal(err)
		}
	}
	stats, _ := c.Statistics(ctx)
	if stats.Total != 2 || stats.Pending != 2 || stats.Duplicates != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestMarkUnknownIDIsIgnored(t *testing.T) {
	ctx := context.Background()
	c := NewImageCollector(newMemKV(), nil)
	if err := c.MarkProcessed(ctx, "missing", "M"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if err := c.MarkFailed(ctx, "missing", "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if _, ok, _ := c.MediaID(ctx, "missing"); ok {
		t.Fatal("unexpected media for unknown id")
	}
}

func TestStatusListsAndStatistics(t *testing.T) {
	ctx := context.Background()
	c := NewImageCollector(newMemKV(), nil)
	s := specWithImages("gallery",
		heroImage("river at dawn"),
		domain.ImageSpecification{Type: "card", Dimensions: "512x512", Prompt: "bridge"},
		domain.ImageSpecification{Type: "thumb", Dimensions: "256x256", Prompt: "park"},
	)
	if n, err := c.CollectFromContent(ctx, s, "entity-1", riverside()); err != nil || n != 3 {
		t.Fatalf("collect = %d, %v", n, err)
	}
	ids, _ := c.PendingIDs(ctx)
	if len(ids) != 3 {
		t.Fatalf("pending = %v", ids)
	}
	_ = c.MarkProcessed(ctx, ids[0], "m1")
	_ = c.MarkFailed(ctx, ids[1], "timeout")

	stats, _ := c.Statistics(ctx)
	want := domain.QueueStatistics{Total: 3, Pending: 1, Complete: 1, Failed: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
	failed, _ := c.FailedIDs(ctx)
	if len(failed) != 1 || failed[0] != ids[1] {
		t.Fatalf("failed = %v", failed)
	}
	item, err := c.Item(ctx, ids[1])
	if err != nil || item.Error != "timeout" || item.Attempts != 1 {
		t.Fatalf("item = %+v, %v", item, err)
	}
	if item.TargetField != "field_card_image" {
		t.Fatalf("default target field = %q", item.TargetField)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	stats, _ = c.Statistics(ctx)
	if stats.Total != 0 {
		t.Fatalf("queue not cleared: %+v", stats)
	}
}

func TestItemIDScopesToSpec(t *testing.T) {
	img := heroImage("a photo of a modern town hall")
	if ItemID("A", img) == ItemID("B", img) {
		t.Fatal("item ids must differ across specs")
	}
	upper := img
	upper.Prompt = "A PHOTO OF A MODERN TOWN HALL"
	if DedupHash(img) != DedupHash(upper) {
		t.Fatal("dedup hash must ignore case")
	}
}
