package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"sitegen/pkg/zip"
)

type blobLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Read(ctx context.Context, key string) ([]byte, error)
}

type manifest struct {
	ExportedAt time.Time `json:"exported_at"`
	Media      []string  `json:"media"`
}

// Export writes every stored media file plus a manifest.json into a zip
// archive on w and returns the number of media files.
func Export(ctx context.Context, files blobLister, w io.Writer, now time.Time) (int, error) {
	keys, err := files.List(ctx, MediaPrefix)
	if err != nil {
		return 0, err
	}
	entries := make([]zip.Entry, 0, len(keys)+1)
	for _, key := range keys {
		data, err := files.Read(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("export %s: %w", key, err)
		}
		entries = append(entries, zip.Entry{Name: key, Data: data, Modified: now})
	}

	raw, err := json.MarshalIndent(manifest{ExportedAt: now.UTC(), Media: keys}, "", "  ")
	if err != nil {
		return 0, err
	}
	entries = append(entries, zip.Entry{Name: "manifest.json", Data: raw, Modified: now})

	if err := zip.Write(w, entries); err != nil {
		return 0, err
	}
	return len(keys), nil
}
