package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ContentSpecification describes one generated content entity.
type ContentSpecification struct {
	ID            string               `yaml:"id" json:"id"`
	ContentType   string               `yaml:"content_type" json:"content_type"`
	Order         int                  `yaml:"order" json:"order"`
	Prompt        string               `yaml:"prompt" json:"prompt"`
	TitleTemplate string               `yaml:"title" json:"title"`
	Dependencies  []string             `yaml:"dependencies" json:"dependencies,omitempty"`
	Images        []ImageSpecification `yaml:"images" json:"images,omitempty"`
	// FieldMapping maps target entity field -> generated content key.
	FieldMapping map[string]string `yaml:"fields" json:"fields,omitempty"`
}

// ContentKeys lists the generated keys the specification consumes.
func (s ContentSpecification) ContentKeys() []string {
	seen := make(map[string]struct{}, len(s.FieldMapping)+1)
	keys := []string{"title"}
	seen["title"] = struct{}{}
	for _, key := range s.FieldMapping {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// ImageSpecification describes an image embedded in a content specification.
type ImageSpecification struct {
	Type        string `yaml:"type" json:"type"`
	Dimensions  string `yaml:"dimensions" json:"dimensions"`
	Style       string `yaml:"style" json:"style,omitempty"`
	Prompt      string `yaml:"prompt" json:"prompt"`
	TargetField string `yaml:"target_field" json:"target_field,omitempty"`
}

// Size parses Dimensions ("1024x1024") into width and height.
func (s ImageSpecification) Size() (int, int, error) {
	raw := strings.ToLower(strings.TrimSpace(s.Dimensions))
	parts := strings.Split(raw, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid dimensions %q", s.Dimensions)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %q", s.Dimensions)
	}
	return w, h, nil
}

// FormattedText wraps long-form markup with its text format marker.
type FormattedText struct {
	Value  string `json:"value"`
	Format string `json:"format"`
}

// DefaultTextFormat is applied to body fields.
const DefaultTextFormat = "full_html"

// GenerationSummary aggregates a content pass.
type GenerationSummary struct {
	Succeeded     int      `json:"succeeded"`
	Failed        int      `json:"failed"`
	Skipped       int      `json:"skipped,omitempty"`
	FailedSpecIDs []string `json:"failed_spec_ids"`
	ElapsedMS     int64    `json:"elapsed_ms"`
	Interrupted   bool     `json:"interrupted,omitempty"`
}
