package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"net/url"
	"strings"
)

// ImageRequest represents the information required to generate one image.
type ImageRequest struct {
	Prompt    string
	Width     int
	Height    int
	Style     string
	RequestID string
}

// ImageAsset is the normalized representation returned by the Gemini client.
type ImageAsset struct {
	StorageKey string
	Format     string
	Width      int
	Height     int
	Data       []byte
	Synthetic  bool
}

// GenerateImage returns one image for req. Without an API key a deterministic
// synthetic PNG is produced instead of calling the API.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.apiKey == "" {
		return c.syntheticImage(req), nil
	}

	asset, err := c.remoteGenerateImage(ctx, req)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("model", c.imageModel).
			Str("request_id", req.RequestID).
			Msg("genai: remote image generation failed")
		return nil, err
	}
	return asset, nil
}

func (c *Client) syntheticImage(req ImageRequest) *ImageAsset {
	width, height := normalizeSize(req.Width, req.Height)
	seed := deterministicSeed(req.RequestID, req.Prompt, req.Style, width, height)
	asset := &ImageAsset{
		StorageKey: syntheticStorageKey(c.imageModel, seed, "png"),
		Format:     "image/png",
		Width:      width,
		Height:     height,
		Data:       renderSyntheticImage(width, height, seed),
		Synthetic:  true,
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.imageModel).
		Int("width", width).
		Int("height", height).
		Msg("genai: generated synthetic image asset")

	return asset
}

func (c *Client) remoteGenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildImagePrompt(req)}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:     1,
			ResponseModalities: []string{"IMAGE"},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.imageModel)), payload, &response); err != nil {
		return nil, err
	}

	width, height := normalizeSize(req.Width, req.Height)
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			data, format, err := c.decodeInlineAsset(ctx, part)
			if err != nil || len(data) == 0 {
				continue
			}
			w, h := decodeImageDimensions(data)
			if w == 0 || h == 0 {
				w, h = width, height
			}
			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", c.imageModel).
				Int("bytes", len(data)).
				Msg("genai: generated remote image asset")
			return &ImageAsset{
				Format: firstNonEmpty(format, "image/png"),
				Width:  w,
				Height: h,
				Data:   data,
			}, nil
		}
	}

	return nil, fmt.Errorf("genai: no image content returned")
}

func (c *Client) decodeInlineAsset(ctx context.Context, part geminiPart) ([]byte, string, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, "", fmt.Errorf("decode inline data: %w", err)
		}
		return data, part.InlineData.MimeType, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return nil, "", err
		}
		return data, firstNonEmpty(part.FileData.MimeType, mime), nil
	}

	return nil, "", nil
}

func buildImagePrompt(req ImageRequest) string {
	var b strings.Builder
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		b.WriteString(prompt)
	}
	if style := strings.TrimSpace(req.Style); style != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Style: ")
		b.WriteString(style)
	}
	if req.Width > 0 && req.Height > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Dimensions: %dx%d pixels", req.Width, req.Height)
	}
	if b.Len() == 0 {
		b.WriteString("Create a website illustration")
	}
	return b.String()
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func normalizeSize(width, height int) (int, int) {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	return width, height
}
