package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"sitegen/internal/domain"
	"sitegen/internal/storage"
)

type stubMediaRepo struct {
	inserted []domain.Media
	bound    []domain.MediaBinding
	bindErr  error
}

func (s *stubMediaRepo) InsertMedia(ctx context.Context, m domain.Media) error {
	s.inserted = append(s.inserted, m)
	return nil
}

func (s *stubMediaRepo) BindMedia(ctx context.Context, b domain.MediaBinding) error {
	if s.bindErr != nil {
		return s.bindErr
	}
	s.bound = append(s.bound, b)
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestStoreRecordsMedia(t *testing.T) {
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo := &stubMediaRepo{}
	lib := NewLibrary(files, repo, nil)

	id, err := lib.Store(context.Background(), pngBytes(t, 12, 8), "image/png")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one media record")
	}
	m := repo.inserted[0]
	if m.ID != id || m.Width != 12 || m.Height != 8 {
		t.Fatalf("unexpected media %+v", m)
	}
	if !strings.HasPrefix(m.StorageKey, "media/"+m.Checksum[:2]+"/") || !strings.HasSuffix(m.StorageKey, ".png") {
		t.Fatalf("unexpected storage key %q", m.StorageKey)
	}
	data, err := files.Read(context.Background(), m.StorageKey)
	if err != nil || len(data) == 0 {
		t.Fatalf("file not written: %v", err)
	}
}

func TestStoreRejectsEmpty(t *testing.T) {
	files, _ := storage.NewFileStore(t.TempDir())
	if _, err := NewLibrary(files, &stubMediaRepo{}, nil).Store(context.Background(), nil, "image/png"); err == nil {
		t.Fatal("expected error")
	}
}

func TestBindPassesThroughErrors(t *testing.T) {
	files, _ := storage.NewFileStore(t.TempDir())
	repo := &stubMediaRepo{}
	lib := NewLibrary(files, repo, nil)

	if err := lib.Bind(context.Background(), "e1", "field_hero_image", "m1", "Hero"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if repo.bound[0].AltText != "Hero" {
		t.Fatalf("unexpected binding %+v", repo.bound[0])
	}
	if err := lib.Bind(context.Background(), "e1", " ", "m1", ""); err == nil {
		t.Fatal("expected error for empty field")
	}
	repo.bindErr = domain.ErrNotFound
	if err := lib.Bind(context.Background(), "gone", "f", "m1", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
