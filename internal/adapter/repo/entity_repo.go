package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// EntityRepositoryPG implements domain.EntityStore.
type EntityRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewEntityRepository creates an entity repository backed by PostgreSQL.
func NewEntityRepository(sql infra.SQLExecutor) *EntityRepositoryPG {
	return &EntityRepositoryPG{sql: sql}
}

// Create inserts a new entity and returns its id.
func (r *EntityRepositoryPG) Create(ctx context.Context, contentType string, fields map[string]any) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode entity fields: %w", err)
	}
	id := uuid.NewString()
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertEntity, id, contentType, payload); err != nil {
		return "", fmt.Errorf("insert entity: %w", err)
	}
	return id, nil
}

// Exists reports whether an entity with id is stored. Malformed ids never exist.
func (r *EntityRepositoryPG) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var exists bool
	if err := r.sql.QueryRow(ctx, sqlinline.QEntityExists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("entity exists: %w", err)
	}
	return exists, nil
}

// Entity fetches one entity by id.
func (r *EntityRepositoryPG) Entity(ctx context.Context, id string) (*domain.Entity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	var (
		entity domain.Entity
		fields []byte
	)
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectEntity, id).Scan(&entity.ID, &entity.ContentType, &fields, &entity.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(fields, &entity.Fields); err != nil {
		return nil, fmt.Errorf("decode entity fields: %w", err)
	}
	return &entity, nil
}

// CountByType returns entity counts keyed by content type.
func (r *EntityRepositoryPG) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QCountEntitiesByType)
	if err != nil {
		return nil, err
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

var _ domain.EntityStore = (*EntityRepositoryPG)(nil)
