package genai

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoCredentials is returned by remote-only operations when no API key is set.
var ErrNoCredentials = errors.New("genai: api key not configured")

// TextRequest is a single-turn text generation call.
type TextRequest struct {
	Prompt      string
	System      string
	Model       string
	Temperature *float64
	MaxTokens   int
	JSON        bool
}

// TextResult carries the concatenated candidate text.
type TextResult struct {
	Text         string
	Model        string
	FinishReason string
}

// GenerateText calls generateContent and returns the first candidate's text.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, ErrNoCredentials
	}

	model := firstNonEmpty(req.Model, c.model)
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: strings.TrimSpace(req.Prompt)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:  1,
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if req.JSON {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model)), payload, &response); err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			c.logger.Debug().
				Str("model", model).
				Int("chars", len(text)).
				Msg("genai: generated text")
			return &TextResult{Text: text, Model: model, FinishReason: candidate.FinishReason}, nil
		}
	}
	return nil, fmt.Errorf("genai: empty text response from %s", model)
}
