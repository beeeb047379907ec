package image

import (
	"bytes"
	"context"
	stdimage "image"
	"image/png"
	"testing"
	"time"

	"sitegen/internal/providers/qwen"
	"sitegen/internal/ratelimit"
)

func TestLimitedRetriesAllowlistedCodes(t *testing.T) {
	calls := 0
	next := GeneratorFunc(func(ctx context.Context, req Request) (*Result, error) {
		calls++
		if calls == 1 {
			return nil, &qwen.APIError{StatusCode: 429, Code: "Throttling"}
		}
		return &Result{Data: []byte("ok")}, nil
	})
	var slept []time.Duration
	limiter := ratelimit.New(ratelimit.DefaultPolicies()[ratelimit.ServiceImageGeneration],
		ratelimit.WithSleep(func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}))

	res, err := NewLimited(next, limiter).Generate(context.Background(), Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(res.Data) != "ok" || calls != 2 {
		t.Fatalf("unexpected result %+v after %d calls", res, calls)
	}
	if len(slept) != 2 {
		t.Fatalf("expected pacing and one retry wait, got %v", slept)
	}
}

func TestFitResizesToRequestedDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, 40, 20))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	res, err := Fit(&Result{Data: buf.Bytes(), MIME: "image/png", Width: 40, Height: 20}, 16, 16)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 16 || res.Width != 16 {
		t.Fatalf("expected 16x16, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestFitLeavesMatchingOrOpaqueData(t *testing.T) {
	original := &Result{Data: []byte("not an image")}
	res, err := Fit(original, 10, 10)
	if err != nil || res != original {
		t.Fatalf("expected untouched result, got %v %v", res, err)
	}
}
