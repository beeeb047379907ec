// Package assets stores generated binaries and binds them to entity fields.
package assets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/storage"
)

// MediaPrefix is the storage prefix of every generated binary.
const MediaPrefix = "media"

type blobWriter interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

// Library implements domain.AssetStore over a file store and a media
// repository.
type Library struct {
	files  blobWriter
	media  domain.MediaRepository
	logger infra.Logger
	now    func() time.Time
}

// NewLibrary wires the blob store and the media records.
func NewLibrary(files blobWriter, media domain.MediaRepository, logger *infra.Logger) *Library {
	return &Library{files: files, media: media, logger: infra.EnsureLogger(logger), now: time.Now}
}

// Store writes data under a content-addressed key and records it as media.
func (l *Library) Store(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("store asset: empty payload")
	}
	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])
	key, err := l.files.Write(ctx, storage.ContentKey(MediaPrefix, checksum, extensionFor(mimeType)), data)
	if err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}

	media := domain.Media{
		ID:         uuid.NewString(),
		StorageKey: key,
		MIME:       mimeType,
		Bytes:      int64(len(data)),
		Checksum:   checksum,
		CreatedAt:  l.now(),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		media.Width, media.Height = cfg.Width, cfg.Height
	}
	if err := l.media.InsertMedia(ctx, media); err != nil {
		// Content-addressed files may be shared; only log the orphan.
		l.logger.Warn().Err(err).Str("storage_key", key).Msg("media insert failed; file left on disk")
		return "", fmt.Errorf("store asset: %w", err)
	}
	l.logger.Debug().
		Str("media_id", media.ID).
		Str("storage_key", key).
		Int64("bytes", media.Bytes).
		Msg("asset stored")
	return media.ID, nil
}

// Bind attaches assetID to entityID.field with altText.
func (l *Library) Bind(ctx context.Context, entityID, field, assetID, altText string) error {
	field = strings.TrimSpace(field)
	if field == "" {
		return fmt.Errorf("bind asset %s: target field is required", assetID)
	}
	return l.media.BindMedia(ctx, domain.MediaBinding{
		EntityID: entityID,
		Field:    field,
		MediaID:  assetID,
		AltText:  altText,
	})
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "bin"
	}
}

var _ domain.AssetStore = (*Library)(nil)
