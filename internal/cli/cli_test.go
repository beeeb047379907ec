package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"sitegen/internal/domain"
	"sitegen/internal/generation"
)

func init() {
	color.NoColor = true
}

type stubPipeline struct {
	state    domain.GenerationState
	startOK  bool
	started  []generation.StartOptions
	calls    []string
	identity domain.Identity
	report   *generation.RunReport
	err      error
}

func (s *stubPipeline) StartGeneration(ctx context.Context, opts generation.StartOptions) (bool, error) {
	s.started = append(s.started, opts)
	return s.startOK, nil
}

func (s *stubPipeline) Progress(ctx context.Context) (domain.GenerationState, error) {
	return s.state, nil
}

func (s *stubPipeline) Pause(ctx context.Context) error {
	s.calls = append(s.calls, "pause")
	return s.err
}

func (s *stubPipeline) Resume(ctx context.Context) (domain.GenerationStatus, error) {
	s.calls = append(s.calls, "resume")
	return domain.StatusGeneratingImages, s.err
}

func (s *stubPipeline) Cancel(ctx context.Context) error {
	s.calls = append(s.calls, "cancel")
	return nil
}

func (s *stubPipeline) FailedSpecIDs(ctx context.Context) ([]string, error) {
	return []string{"council-tax", "bin-collections"}, nil
}

func (s *stubPipeline) QueueStatistics(ctx context.Context) (domain.QueueStatistics, error) {
	return domain.QueueStatistics{Total: 4, Pending: 1, Complete: 2, Failed: 1, Duplicates: 3}, nil
}

func (s *stubPipeline) GenerateAll(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error) {
	s.identity = identity
	cb(domain.Progress{Phase: domain.StatusGeneratingContent, Step: 1, Total: 2, ItemID: "homepage-welcome"})
	cb(domain.Progress{Phase: domain.StatusGeneratingContent, Step: 2, Total: 2, ItemID: "council-tax", Failed: true})
	return &domain.GenerationSummary{Succeeded: 1, Failed: 1, FailedSpecIDs: []string{"council-tax"}}, nil
}

func (s *stubPipeline) RetryFailedContent(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.GenerationSummary, error) {
	s.identity = identity
	return &domain.GenerationSummary{Succeeded: 1, Skipped: 1}, nil
}

func (s *stubPipeline) ProcessImageQueue(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error) {
	s.identity = identity
	return &domain.ImageBatchResult{Succeeded: 2, DuplicatesResolved: 1}, nil
}

func (s *stubPipeline) RetryFailedImages(ctx context.Context, identity domain.Identity, cb domain.ProgressFunc) (*domain.ImageBatchResult, error) {
	return nil, errors.New("queue unavailable")
}

func (s *stubPipeline) Continue(ctx context.Context, cb domain.ProgressFunc) (*generation.RunReport, error) {
	s.calls = append(s.calls, "continue")
	return s.report, s.err
}

type stubKeys struct {
	set     map[string]string
	cleared []string
}

func (k *stubKeys) SetToken(ctx context.Context, provider, token string) error {
	if k.set == nil {
		k.set = map[string]string{}
	}
	k.set[provider] = token
	return nil
}

func (k *stubKeys) Clear(ctx context.Context, provider string) error {
	k.cleared = append(k.cleared, provider)
	return nil
}

type fixture struct {
	pipeline *stubPipeline
	keys     *stubKeys
	closed   int
	opened   int
}

func newFixture() *fixture {
	return &fixture{pipeline: &stubPipeline{startOK: true}, keys: &stubKeys{}}
}

func (f *fixture) loaders() Loaders {
	return Loaders{
		Pipeline: func(ctx context.Context) (*Deps, error) {
			f.opened++
			return &Deps{
				Pipeline: f.pipeline,
				Identity: func(ctx context.Context) (domain.Identity, error) {
					return domain.Identity{Name: "Default Council"}, nil
				},
				Counts: func(ctx context.Context) (map[string]int, error) {
					return map[string]int{"service": 3, "page": 2}, nil
				},
				Lookup: func(ctx context.Context, id string) (*domain.Entity, error) {
					if id != "entity-1" {
						return nil, domain.ErrNotFound
					}
					return &domain.Entity{ID: id, ContentType: "page", Fields: map[string]any{"title": "Welcome"}, CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}, nil
				},
				Export: func(ctx context.Context, w io.Writer) (int, error) {
					_, err := w.Write([]byte("PK"))
					return 2, err
				},
				Close: func() { f.closed++ },
			}, nil
		},
		Keys: func(ctx context.Context) (KeyStore, func(), error) {
			return f.keys, func() { f.closed++ }, nil
		},
	}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, s := newRoot(f.loaders())
	defer s.close()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStartUsesDefaultIdentity(t *testing.T) {
	f := newFixture()
	// The stored identity belongs to the previous run.
	f.pipeline.state = domain.GenerationState{Status: domain.StatusComplete, Identity: domain.Identity{Name: "Old Council"}}

	out, err := f.run(t, "start", "--total-steps", "12")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(f.pipeline.started) != 1 {
		t.Fatalf("expected one start, got %d", len(f.pipeline.started))
	}
	opts := f.pipeline.started[0]
	if opts.Identity.Name != "Default Council" || opts.TotalSteps != 12 {
		t.Fatalf("unexpected start options %+v", opts)
	}
	if !strings.Contains(out, "Started generation for Default Council") {
		t.Fatalf("unexpected output %q", out)
	}
	if f.closed != 1 {
		t.Fatalf("expected deps closed once, got %d", f.closed)
	}
}

func TestStartReadsIdentityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	if err := os.WriteFile(path, []byte(`{"name":"Riverside Borough Council"}`), 0o644); err != nil {
		t.Fatalf("write identity: %v", err)
	}
	f := newFixture()
	if _, err := f.run(t, "start", "--identity", path); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := f.pipeline.started[0].Identity.Name; got != "Riverside Borough Council" {
		t.Fatalf("identity = %q", got)
	}
}

func TestStartReportsRunningGeneration(t *testing.T) {
	f := newFixture()
	f.pipeline.startOK = false
	out, err := f.run(t, "start")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out, "already in progress") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStatusPrintsCheckpoint(t *testing.T) {
	f := newFixture()
	f.pipeline.state = domain.GenerationState{
		Status:       domain.StatusGeneratingContent,
		Identity:     domain.Identity{Name: "Riverside", Metadata: domain.IdentityMetadata{FailedSpecs: []string{"a"}}},
		CurrentStep:  3,
		TotalSteps:   12,
		CurrentPhase: "content",
	}
	out, err := f.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"generating_content", "Riverside", "3/12 (25%)", "content", "Failed content: 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestPauseResumeCancel(t *testing.T) {
	f := newFixture()
	for _, args := range [][]string{{"pause"}, {"resume"}, {"cancel"}} {
		if _, err := f.run(t, args...); err != nil {
			t.Fatalf("%s: %v", args[0], err)
		}
	}
	if strings.Join(f.pipeline.calls, ",") != "pause,resume,cancel" {
		t.Fatalf("unexpected calls %v", f.pipeline.calls)
	}
}

func TestPausePropagatesTransitionError(t *testing.T) {
	f := newFixture()
	f.pipeline.err = domain.ErrInvalidTransition
	if _, err := f.run(t, "pause"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRunPrintsReport(t *testing.T) {
	f := newFixture()
	f.pipeline.report = &generation.RunReport{
		Status:  domain.StatusComplete,
		Content: &domain.GenerationSummary{Succeeded: 5},
		Images:  &domain.ImageBatchResult{Succeeded: 3, DuplicatesResolved: 2},
	}
	out, err := f.run(t, "run", "-q")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Content: 5 succeeded", "Images: 3 succeeded, 0 failed, 2 duplicates bound", "Status: complete"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestGeneratePrefersStoredIdentity(t *testing.T) {
	f := newFixture()
	f.pipeline.state = domain.GenerationState{Status: domain.StatusGeneratingContent, Identity: domain.Identity{Name: "Running Council"}}
	out, err := f.run(t, "generate")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if f.pipeline.identity.Name != "Running Council" {
		t.Fatalf("identity = %q", f.pipeline.identity.Name)
	}
	for _, want := range []string{"[1/2] homepage-welcome", "[2/2] council-tax", "1 succeeded, 1 failed", "failed: council-tax"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestRetryImagesReturnsError(t *testing.T) {
	f := newFixture()
	if _, err := f.run(t, "retry-images"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFailedAndQueue(t *testing.T) {
	f := newFixture()
	out, err := f.run(t, "failed")
	if err != nil {
		t.Fatalf("failed: %v", err)
	}
	if !strings.Contains(out, "council-tax") || !strings.Contains(out, "bin-collections") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = f.run(t, "queue")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if !strings.Contains(out, "Duplicates: 3") || !strings.Contains(out, "Pending:    1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestEntityCountsAndLookup(t *testing.T) {
	f := newFixture()
	out, err := f.run(t, "entity")
	if err != nil {
		t.Fatalf("entity: %v", err)
	}
	if strings.Index(out, "page") > strings.Index(out, "service") {
		t.Fatalf("expected sorted content types, got %q", out)
	}

	out, err = f.run(t, "entity", "entity-1")
	if err != nil {
		t.Fatalf("entity lookup: %v", err)
	}
	if !strings.Contains(out, `"title": "Welcome"`) {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := f.run(t, "entity", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeysSet(t *testing.T) {
	f := newFixture()
	if _, err := f.run(t, "keys", "set", "Qwen", "--key", " sk-123 "); err != nil {
		t.Fatalf("keys set: %v", err)
	}
	if f.keys.set["qwen"] != "sk-123" {
		t.Fatalf("stored keys %v", f.keys.set)
	}
	if f.opened != 0 {
		t.Fatal("keys must not open the pipeline")
	}

	t.Setenv("OPENAI_API_KEY", "")
	if _, err := f.run(t, "keys", "set", "openai"); err == nil {
		t.Fatal("expected error without key")
	}
	if _, err := f.run(t, "keys", "set", "midjourney", "--key", "x"); err == nil {
		t.Fatal("expected error for unknown provider")
	}

	if _, err := f.run(t, "keys", "clear", "gemini"); err != nil {
		t.Fatalf("keys clear: %v", err)
	}
	if len(f.keys.cleared) != 1 || f.keys.cleared[0] != "gemini" {
		t.Fatalf("cleared %v", f.keys.cleared)
	}
}

func TestExportWritesArchive(t *testing.T) {
	f := newFixture()
	path := filepath.Join(t.TempDir(), "media.zip")
	out, err := f.run(t, "export", "-o", path)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "PK" {
		t.Fatalf("archive = %q, %v", data, err)
	}
	if !strings.Contains(out, "Exported 2 media files") {
		t.Fatalf("unexpected output %q", out)
	}
}
