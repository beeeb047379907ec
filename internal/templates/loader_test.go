package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sitegen/internal/domain"
)

const homepageYAML = `
templates:
  - id: homepage-welcome
    content_type: page
    order: 1
    prompt: "Write a welcome page for {{council_name}}."
    title: "Welcome to {{council_name}}"
    dependencies: []
    fields:
      body: body
      field_summary: summary
    images:
      - type: hero
        dimensions: 1024x1024
        prompt: "a photo of a modern town hall"
        target_field: field_hero_image
  - id: about-us
    content_type: page
    order: 0
    prompt: "Describe {{council_name}}."
`

func TestParseYAMLList(t *testing.T) {
	specs, err := ParseYAML([]byte(homepageYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	home := specs[0]
	if home.ID != "homepage-welcome" || home.TitleTemplate != "Welcome to {{council_name}}" {
		t.Fatalf("unexpected spec %+v", home)
	}
	if home.FieldMapping["body"] != "body" || len(home.Images) != 1 || home.Images[0].TargetField != "field_hero_image" {
		t.Fatalf("unexpected mapping %+v", home)
	}
}

func TestParseYAMLSingle(t *testing.T) {
	specs, err := ParseYAML([]byte("id: news\ncontent_type: article\nprompt: hello\n"))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(specs) != 1 || specs[0].ID != "news" {
		t.Fatalf("unexpected specs %+v", specs)
	}
}

func TestParseYAMLValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "   "},
		{"missing id", "content_type: page\nprompt: x\n"},
		{"missing type", "id: a\nprompt: x\n"},
		{"bad dimensions", "id: a\ncontent_type: page\nprompt: x\nimages:\n  - type: hero\n    dimensions: big\n    prompt: y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseYAML([]byte(tt.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadDirOrdersTemplates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pages.yaml"), []byte(homepageYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "news.yml"), []byte("id: news\ncontent_type: article\norder: 5\nprompt: hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	specs, err := src.TemplatesInOrder(context.Background())
	if err != nil {
		t.Fatalf("TemplatesInOrder: %v", err)
	}
	got := []string{specs[0].ID, specs[1].ID, specs[2].ID}
	want := []string{"about-us", "homepage-welcome", "news"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if src.ImageCount() != 1 {
		t.Fatalf("ImageCount = %d", src.ImageCount())
	}
	if _, err := src.Template(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewSourceRejectsDuplicates(t *testing.T) {
	spec := domain.ContentSpecification{ID: "a", ContentType: "page", Prompt: "x"}
	if _, err := NewSource([]domain.ContentSpecification{spec, spec}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoadDirBundledTemplates(t *testing.T) {
	src, err := LoadDir(filepath.Join("..", "..", "templates"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if src.Len() != 7 || src.ImageCount() != 5 {
		t.Fatalf("Len = %d, ImageCount = %d", src.Len(), src.ImageCount())
	}
	specs, err := src.TemplatesInOrder(context.Background())
	if err != nil {
		t.Fatalf("TemplatesInOrder: %v", err)
	}
	if specs[0].ID != "homepage-welcome" || specs[len(specs)-1].ID != "local-news" {
		t.Fatalf("unexpected order %s .. %s", specs[0].ID, specs[len(specs)-1].ID)
	}
}
