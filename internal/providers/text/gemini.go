package text

import (
	"context"
	"errors"
	"strconv"
	"time"

	"sitegen/internal/providers/genai"
)

type geminiTextClient interface {
	GenerateText(context.Context, genai.TextRequest) (*genai.TextResult, error)
	HasCredentials() bool
	Model() string
}

// GeminiGenerator calls Gemini generateContent through the shared genai client.
type GeminiGenerator struct {
	client geminiTextClient
}

func NewGeminiGenerator(client geminiTextClient) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	res, err := g.client.GenerateText(ctx, genai.TextRequest{
		Prompt:      req.Prompt,
		System:      coalesce(req.System, defaultSystemPrompt),
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		JSON:        req.JSON,
	})
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &Error{
				Provider: geminiProviderName,
				Status:   apiErr.StatusCode,
				Code:     coalesce(apiErr.Status, strconv.Itoa(apiErr.StatusCode)),
				Message:  apiErr.Message,
			}
		}
		return nil, err
	}
	return &Response{
		Text:     res.Text,
		Model:    res.Model,
		Provider: geminiProviderName,
		Elapsed:  time.Since(start),
	}, nil
}

// Check fails when the client has no API key.
func (g *GeminiGenerator) Check(ctx context.Context) error {
	if !g.client.HasCredentials() {
		return genai.ErrNoCredentials
	}
	return ctx.Err()
}

var _ Generator = (*GeminiGenerator)(nil)
var _ Checker = (*GeminiGenerator)(nil)
