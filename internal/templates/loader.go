// Package templates loads content specifications from YAML and renders their
// prompt templates against an identity.
package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"sitegen/internal/domain"
)

// document is the on-disk shape: either a `templates:` list or a single spec.
type document struct {
	Templates []domain.ContentSpecification `yaml:"templates"`
}

// ParseYAML decodes and validates every specification in one payload.
func ParseYAML(data []byte) ([]domain.ContentSpecification, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("templates: payload is empty")
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("templates: decode: %w", err)
	}
	specs := doc.Templates
	if len(specs) == 0 {
		var single domain.ContentSpecification
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("templates: decode: %w", err)
		}
		specs = []domain.ContentSpecification{single}
	}
	for i := range specs {
		if err := Validate(specs[i]); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// Validate rejects specifications the pipeline cannot process.
func Validate(spec domain.ContentSpecification) error {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return fmt.Errorf("templates: specification id is required")
	}
	if strings.TrimSpace(spec.ContentType) == "" {
		return fmt.Errorf("templates: %s: content_type is required", id)
	}
	if strings.TrimSpace(spec.Prompt) == "" {
		return fmt.Errorf("templates: %s: prompt is required", id)
	}
	for i, img := range spec.Images {
		if strings.TrimSpace(img.Type) == "" {
			return fmt.Errorf("templates: %s: image %d: type is required", id, i)
		}
		if _, _, err := img.Size(); err != nil {
			return fmt.Errorf("templates: %s: image %d: %w", id, i, err)
		}
		if strings.TrimSpace(img.Prompt) == "" {
			return fmt.Errorf("templates: %s: image %d: prompt is required", id, i)
		}
	}
	return nil
}

// Source is an in-memory TemplateSource.
type Source struct {
	mu    sync.RWMutex
	byID  map[string]domain.ContentSpecification
	order []string
}

// NewSource indexes specs; duplicate ids are rejected.
func NewSource(specs []domain.ContentSpecification) (*Source, error) {
	s := &Source{byID: make(map[string]domain.ContentSpecification, len(specs))}
	for _, spec := range specs {
		if _, exists := s.byID[spec.ID]; exists {
			return nil, fmt.Errorf("templates: duplicate specification id %q", spec.ID)
		}
		s.byID[spec.ID] = spec
		s.order = append(s.order, spec.ID)
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		a, b := s.byID[s.order[i]], s.byID[s.order[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	return s, nil
}

// LoadDir reads every *.yaml / *.yml file in dir. A missing directory is an
// error because the pipeline cannot run without templates.
func LoadDir(dir string) (*Source, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("templates: directory not configured")
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("templates: %s does not exist", trimmed)
		}
		return nil, fmt.Errorf("templates: read %s: %w", trimmed, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var specs []domain.ContentSpecification
	for _, name := range names {
		path := filepath.Join(trimmed, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("templates: read %s: %w", path, err)
		}
		parsed, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("templates: %s: %w", path, err)
		}
		specs = append(specs, parsed...)
	}
	return NewSource(specs)
}

// TemplatesInOrder returns specifications sorted by Order, then ID.
func (s *Source) TemplatesInOrder(ctx context.Context) ([]domain.ContentSpecification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ContentSpecification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// Template returns the specification with id, or domain.ErrNotFound.
func (s *Source) Template(ctx context.Context, id string) (*domain.ContentSpecification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	spec, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("template %q: %w", id, domain.ErrNotFound)
	}
	return &spec, nil
}

// Len reports how many specifications are loaded.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ImageCount totals the images declared across all specifications.
func (s *Source) ImageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, spec := range s.byID {
		total += len(spec.Images)
	}
	return total
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

var _ domain.TemplateSource = (*Source)(nil)
