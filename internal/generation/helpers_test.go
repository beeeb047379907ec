package generation

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"sitegen/internal/domain"
	imageprovider "sitegen/internal/providers/image"
	textprovider "sitegen/internal/providers/text"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.data[key]
	if !ok || !bytes.Equal(current, old) {
		return false, nil
	}
	m.data[key] = append([]byte(nil), value...)
	return true, nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type stubSource struct {
	specs []domain.ContentSpecification
	err   error
}

func (s *stubSource) TemplatesInOrder(ctx context.Context) ([]domain.ContentSpecification, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := append([]domain.ContentSpecification(nil), s.specs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *stubSource) Template(ctx context.Context, id string) (*domain.ContentSpecification, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.specs {
		if s.specs[i].ID == id {
			spec := s.specs[i]
			return &spec, nil
		}
	}
	return nil, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
}

type stubText struct {
	fn       func(call int, req textprovider.Request) (*textprovider.Response, error)
	checkErr error
	requests []textprovider.Request
}

func (s *stubText) Generate(ctx context.Context, req textprovider.Request) (*textprovider.Response, error) {
	s.requests = append(s.requests, req)
	if s.fn == nil {
		return &textprovider.Response{Text: `{"title":"Generated","body":"<p>ok</p>"}`}, nil
	}
	return s.fn(len(s.requests), req)
}

func (s *stubText) Check(ctx context.Context) error {
	return s.checkErr
}

func (s *stubText) prompts() []string {
	out := make([]string, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, r.Prompt)
	}
	return out
}

type stubEntities struct {
	created map[string]map[string]any
	order   []string
	fail    func(fields map[string]any) error
}

func newStubEntities() *stubEntities {
	return &stubEntities{created: map[string]map[string]any{}}
}

func (s *stubEntities) Create(ctx context.Context, contentType string, fields map[string]any) (string, error) {
	if s.fail != nil {
		if err := s.fail(fields); err != nil {
			return "", err
		}
	}
	id := fmt.Sprintf("entity-%d", len(s.order)+1)
	s.created[id] = fields
	s.order = append(s.order, id)
	return id, nil
}

func (s *stubEntities) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := s.created[id]
	return ok, nil
}

type binding struct {
	entityID, field, assetID, alt string
}

type stubAssets struct {
	stored   [][]byte
	bindings []binding
	bindErr  func(entityID string) error
}

func (s *stubAssets) Store(ctx context.Context, data []byte, mimeType string) (string, error) {
	s.stored = append(s.stored, data)
	return fmt.Sprintf("media-%d", len(s.stored)), nil
}

func (s *stubAssets) Bind(ctx context.Context, entityID, field, assetID, altText string) error {
	if s.bindErr != nil {
		if err := s.bindErr(entityID); err != nil {
			return err
		}
	}
	s.bindings = append(s.bindings, binding{entityID, field, assetID, altText})
	return nil
}

type stubImages struct {
	fail     func(req imageprovider.Request) error
	size     func(req imageprovider.Request) (int, int)
	requests []imageprovider.Request
}

func (s *stubImages) Generate(ctx context.Context, req imageprovider.Request) (*imageprovider.Result, error) {
	s.requests = append(s.requests, req)
	if s.fail != nil {
		if err := s.fail(req); err != nil {
			return nil, err
		}
	}
	w, h := req.Width, req.Height
	if s.size != nil {
		w, h = s.size(req)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))); err != nil {
		return nil, err
	}
	return &imageprovider.Result{Data: buf.Bytes(), MIME: "image/png", Width: w, Height: h, Provider: "stub"}, nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

type harness struct {
	kv        *memKV
	state     *StateManager
	collector *ImageCollector
	content   *ContentOrchestrator
	images    *ImageProcessor
	source    *stubSource
	text      *stubText
	entities  *stubEntities
	assets    *stubAssets
	gen       *stubImages
	sleeps    *sleepRecorder
}

func newHarness(t *testing.T, specs ...domain.ContentSpecification) *harness {
	t.Helper()
	h := &harness{
		kv:       newMemKV(),
		source:   &stubSource{specs: specs},
		text:     &stubText{},
		entities: newStubEntities(),
		assets:   &stubAssets{},
		gen:      &stubImages{},
		sleeps:   &sleepRecorder{},
	}
	plan := domain.StepPlan{Identity: 1, Content: len(specs), Images: 2}
	h.state = NewStateManager(h.kv, plan, nil)
	h.collector = NewImageCollector(h.kv, nil)
	h.content = NewContentOrchestrator(h.source, h.text, h.entities, h.collector, h.state, ContentOptions{
		MaxAttempts: 3,
		RetryBase:   100 * time.Millisecond,
		ItemDelay:   time.Second,
	}, nil)
	h.content.sleep = h.sleeps.sleep
	h.images = NewImageProcessor(h.collector, h.gen, h.assets, h.state, ImageOptions{ItemDelay: 2 * time.Second}, nil)
	h.images.sleep = h.sleeps.sleep
	return h
}

func riverside() domain.Identity {
	return domain.Identity{Name: "Riverside Borough Council", Profile: map[string]string{"region": "North West"}}
}

func spec(id string, order int) domain.ContentSpecification {
	return domain.ContentSpecification{
		ID:            id,
		ContentType:   "page",
		Order:         order,
		Prompt:        "Write the " + id + " page for {{council_name}}.",
		TitleTemplate: id + " | {{council_name}}",
		FieldMapping:  map[string]string{"body": "body"},
	}
}

func heroImage(prompt string) domain.ImageSpecification {
	return domain.ImageSpecification{Type: "hero", Dimensions: "1024x1024", Prompt: prompt, TargetField: "field_hero_image"}
}
