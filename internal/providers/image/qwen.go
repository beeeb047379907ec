package image

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitegen/internal/providers/qwen"
)

type qwenImageClient interface {
	GenerateImage(context.Context, qwen.ImageRequest) (*qwen.ImageAsset, error)
	HasCredentials() bool
	Model() string
}

// QwenGenerator orchestrates calls to DashScope's Qwen image model and falls back
// to another generator (e.g. synthetic Gemini) when credentials are missing or
// rejected.
type QwenGenerator struct {
	client   qwenImageClient
	fallback Generator
}

// NewQwenGenerator wires a Qwen client with an optional fallback generator.
func NewQwenGenerator(client qwenImageClient, fallback Generator) *QwenGenerator {
	return &QwenGenerator{client: client, fallback: fallback}
}

// Generate fulfils the Generator interface.
func (g *QwenGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("qwen generator not configured")
	}
	if g.client == nil || !g.client.HasCredentials() {
		if g.fallback != nil {
			return g.fallback.Generate(ctx, req)
		}
		return nil, fmt.Errorf("qwen generator missing credentials")
	}

	start := time.Now()
	imageReq := qwen.ImageRequest{
		Prompt:         BuildPrompt(req),
		NegativePrompt: firstNonEmpty(req.NegativePrompt, DefaultNegativePrompt),
		Size:           qwen.SizeFor(req.Width, req.Height),
		Seed:           deterministicSeed(req.RequestID, req.Prompt, req.Width, req.Height),
		RequestID:      req.RequestID,
	}

	asset, err := g.invokeQwen(ctx, imageReq)
	if err != nil {
		if shouldFallback(err) && g.fallback != nil {
			return g.fallback.Generate(ctx, req)
		}
		return nil, err
	}
	return &Result{
		Data:     asset.Data,
		MIME:     normalizeFormat(asset.Format),
		Width:    asset.Width,
		Height:   asset.Height,
		Provider: g.client.Model(),
		Elapsed:  time.Since(start),
	}, nil
}

func (g *QwenGenerator) String() string {
	if g == nil || g.client == nil {
		return "qwen"
	}
	return g.client.Model()
}

var _ Generator = (*QwenGenerator)(nil)

// invokeQwen retries once with a simplified request when DashScope reports an
// internal failure.
func (g *QwenGenerator) invokeQwen(ctx context.Context, req qwen.ImageRequest) (*qwen.ImageAsset, error) {
	asset, err := g.client.GenerateImage(ctx, req)
	if err == nil {
		return asset, nil
	}
	if !isTransientQwenError(err) {
		return nil, err
	}

	simplified := req
	simplified.NegativePrompt = ""
	return g.client.GenerateImage(ctx, simplified)
}

// shouldFallback is limited to credential problems; transient failures are
// left to the rate limiter so they are retried rather than masked.
func shouldFallback(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, qwen.ErrMissingAPIKey) {
		return true
	}
	var apiErr *qwen.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return true
		}
		code := strings.ToLower(apiErr.Code)
		return strings.Contains(code, "invalidapikey") || strings.Contains(code, "accessdenied")
	}
	return false
}

func isTransientQwenError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *qwen.APIError
	if errors.As(err, &apiErr) && strings.EqualFold(apiErr.Code, "InternalError") {
		return true
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	if msg == "" {
		return false
	}
	if strings.Contains(msg, "internalerror") || strings.Contains(msg, "internal error") {
		return true
	}
	if strings.Contains(msg, "service unavailable") || strings.Contains(msg, "server unavailable") {
		return true
	}
	return strings.Contains(msg, "timeout")
}

func deterministicSeed(values ...any) int {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	value := int(binary.BigEndian.Uint32(sum[:4]) % 2147483647)
	if value <= 0 {
		fallback := binary.BigEndian.Uint32(sum[4:8]) % 2147483647
		if fallback == 0 {
			fallback = 1
		}
		value = int(fallback)
	}
	return value
}
