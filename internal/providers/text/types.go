// Package text defines the generative text capability used by the content
// orchestrator and its provider implementations.
package text

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"
)

// Request is one prompt sent to a text model.
type Request struct {
	Prompt      string
	System      string
	Model       string
	Temperature *float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response.
	JSON bool
	// Keys lists the content keys the caller expects in the response.
	Keys []string
}

// Response is the raw model output.
type Response struct {
	Text     string
	Model    string
	Provider string
	Elapsed  time.Duration
}

// Generator is implemented by every text backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Checker is implemented by generators that can verify reachability before a
// batch starts.
type Checker interface {
	Check(ctx context.Context) error
}

// Error is a provider failure with a status and service error code.
type Error struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: status %d (%s): %s", e.Provider, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

// ErrorCode returns the service code, falling back to the HTTP status.
func (e *Error) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	if e.Status > 0 {
		return strconv.Itoa(e.Status)
	}
	return ""
}
