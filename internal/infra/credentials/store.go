package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sitegen/internal/domain"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderQwen   = "qwen"

	keyPrefix = "sitegen:credentials:"
)

// Supported lists the providers a token can be stored for.
var Supported = []string{ProviderGemini, ProviderOpenAI, ProviderQwen}

type record struct {
	Token      string         `json:"token"`
	Properties map[string]any `json:"properties,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Store keeps provider API tokens in the key-value backend so workers can
// pick them up without the key being present in their environment.
type Store struct {
	kv  domain.KeyValueStore
	now func() time.Time
}

func NewStore(kv domain.KeyValueStore) *Store {
	return &Store{kv: kv, now: time.Now}
}

// IsSupported reports whether provider can hold a token.
func IsSupported(provider string) bool {
	for _, p := range Supported {
		if p == provider {
			return true
		}
	}
	return false
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", fmt.Errorf("decode %s credentials: %w", provider, err)
	}
	return strings.TrimSpace(rec.Token), nil
}

// Resolve prefers the configured value and falls back to the stored token.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	return s.Token(ctx, provider)
}

// SetToken stores token for provider, replacing any previous value.
func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	if !IsSupported(provider) {
		return fmt.Errorf("unsupported provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	raw, err := json.Marshal(record{Token: token, Properties: map[string]any{}, UpdatedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, keyPrefix+provider, raw)
}

// Clear removes the stored token for provider.
func (s *Store) Clear(ctx context.Context, provider string) error {
	return s.kv.Delete(ctx, keyPrefix+provider)
}
