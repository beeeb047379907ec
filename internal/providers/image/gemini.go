package image

import (
	"context"
	"time"

	"sitegen/internal/providers/genai"
)

type geminiImageClient interface {
	GenerateImage(context.Context, genai.ImageRequest) (*genai.ImageAsset, error)
	ImageModel() string
}

// GeminiGenerator produces images through the Gemini client, which renders
// deterministic synthetic assets when it has no credentials.
type GeminiGenerator struct {
	client geminiImageClient
}

func NewGeminiGenerator(client geminiImageClient) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:    BuildPrompt(req),
		Width:     req.Width,
		Height:    req.Height,
		Style:     req.Style,
		RequestID: req.RequestID,
	})
	if err != nil {
		return nil, err
	}
	provider := "gemini"
	if asset.Synthetic {
		provider = "gemini-synthetic"
	}
	return &Result{
		Data:     asset.Data,
		MIME:     normalizeFormat(asset.Format),
		Width:    asset.Width,
		Height:   asset.Height,
		Provider: provider,
		Elapsed:  time.Since(start),
	}, nil
}

func (g *GeminiGenerator) String() string {
	return g.client.ImageModel()
}

var _ Generator = (*GeminiGenerator)(nil)
