package sqlite

import (
	"context"
	"fmt"
	"time"

	"sitegen/internal/domain"
	"sitegen/internal/sqlinline"
)

// InsertMedia records a stored asset.
func (s *Store) InsertMedia(ctx context.Context, m domain.Media) error {
	created := m.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	if _, err := s.db.ExecContext(ctx, sqlinline.QLiteInsertMedia,
		m.ID, m.StorageKey, m.MIME, m.Bytes, m.Width, m.Height, m.Checksum, created.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("sqlite: insert media: %w", err)
	}
	return nil
}

// BindMedia attaches media to an entity field, replacing any previous binding.
// Binding to a missing entity fails with domain.ErrNotFound.
func (s *Store) BindMedia(ctx context.Context, b domain.MediaBinding) error {
	exists, err := s.Exists(ctx, b.EntityID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bind %s.%s: entity %s: %w", b.EntityID, b.Field, b.EntityID, domain.ErrNotFound)
	}
	if _, err := s.db.ExecContext(ctx, sqlinline.QLiteUpsertMediaBinding, b.EntityID, b.Field, b.MediaID, b.AltText, s.timestamp()); err != nil {
		return fmt.Errorf("sqlite: bind media: %w", err)
	}
	return nil
}

var _ domain.MediaRepository = (*Store)(nil)
