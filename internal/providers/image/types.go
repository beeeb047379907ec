// Package image defines the image generation capability consumed by the
// image batch processor and its provider implementations.
package image

import (
	"context"
	"time"
)

// Request describes one image the pipeline needs.
type Request struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Style          string
	RequestID      string
}

// Result is a generated image.
type Result struct {
	Data     []byte
	MIME     string
	Width    int
	Height   int
	Provider string
	Elapsed  time.Duration
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (*Result, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
