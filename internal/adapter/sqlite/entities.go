package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitegen/internal/domain"
	"sitegen/internal/sqlinline"
)

// Create stores a generated entity and returns its new id.
func (s *Store) Create(ctx context.Context, contentType string, fields map[string]any) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode fields: %w", err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, sqlinline.QLiteInsertEntity, id, contentType, string(payload), s.timestamp()); err != nil {
		return "", fmt.Errorf("sqlite: insert entity: %w", err)
	}
	s.logger.Debug().Str("entity_id", id).Str("content_type", contentType).Msg("entity created")
	return id, nil
}

// Exists reports whether an entity with id is stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, sqlinline.QLiteEntityExists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("sqlite: entity exists: %w", err)
	}
	return exists, nil
}

// Entity loads one entity.
func (s *Store) Entity(ctx context.Context, id string) (*domain.Entity, error) {
	var (
		entity    domain.Entity
		fields    string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, sqlinline.QLiteSelectEntity, id).Scan(&entity.ID, &entity.ContentType, &fields, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: select entity: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &entity.Fields); err != nil {
		return nil, fmt.Errorf("sqlite: decode fields: %w", err)
	}
	entity.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &entity, nil
}

// CountByType returns entity counts keyed by content type.
func (s *Store) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, sqlinline.QLiteCountEntitiesByType)
	if err != nil {
		return nil, fmt.Errorf("sqlite: count entities: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			contentType string
			n           int
		)
		if err := rows.Scan(&contentType, &n); err != nil {
			return nil, err
		}
		counts[contentType] = n
	}
	return counts, rows.Err()
}

var _ domain.EntityStore = (*Store)(nil)
