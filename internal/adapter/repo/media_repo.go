package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// pgForeignKeyViolation is SQLSTATE 23503.
const pgForeignKeyViolation = "23503"

// MediaRepositoryPG implements domain.MediaRepository.
type MediaRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewMediaRepository constructs a media repository.
func NewMediaRepository(sql infra.SQLExecutor) *MediaRepositoryPG {
	return &MediaRepositoryPG{sql: sql}
}

// InsertMedia records a stored asset.
func (r *MediaRepositoryPG) InsertMedia(ctx context.Context, m domain.Media) error {
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertMedia, m.ID, m.StorageKey, m.MIME, m.Bytes, m.Width, m.Height, m.Checksum, created.UTC()); err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

// BindMedia attaches media to an entity field. A missing entity surfaces as
// domain.ErrNotFound.
func (r *MediaRepositoryPG) BindMedia(ctx context.Context, b domain.MediaBinding) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertMediaBinding, b.EntityID, b.Field, b.MediaID, b.AltText)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("bind %s.%s: %w", b.EntityID, b.Field, domain.ErrNotFound)
	}
	return fmt.Errorf("bind media: %w", err)
}

var _ domain.MediaRepository = (*MediaRepositoryPG)(nil)
