package assets

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sitegen/internal/storage"
)

func TestExportArchivesStoredMedia(t *testing.T) {
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	logger := zerolog.Nop()
	lib := NewLibrary(files, &stubMediaRepo{}, &logger)
	if _, err := lib.Store(ctx, pngBytes(t, 4, 4), "image/png"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := files.Write(ctx, "exports/old.zip", []byte("ignored")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var buf bytes.Buffer
	n, err := Export(ctx, files, &buf, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 1 {
		t.Fatalf("exported %d media files, want 1", n)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(zr.File) != 2 || zr.File[1].Name != "manifest.json" {
		t.Fatalf("unexpected archive entries %d", len(zr.File))
	}
	if got := zr.File[0].Name; !strings.HasPrefix(got, "media/") {
		t.Fatalf("media entry = %q", got)
	}
}
