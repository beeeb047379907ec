package repo

import (
	"context"
	"fmt"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// KVRepositoryPG implements domain.KeyValueStore on the kv_store table.
type KVRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewKVRepository constructs a key-value repository.
func NewKVRepository(sql infra.SQLExecutor) *KVRepositoryPG {
	return &KVRepositoryPG{sql: sql}
}

// Get returns the document under key or domain.ErrNotFound.
func (r *KVRepositoryPG) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectKV, key).Scan(&value); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, nil
}

// Set overwrites the document under key.
func (r *KVRepositoryPG) Set(ctx context.Context, key string, value []byte) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QUpsertKV, key, value); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// CompareAndSwap replaces the document under key while it still equals old.
func (r *KVRepositoryPG) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QSwapKV, key, old, value)
	if err != nil {
		return false, fmt.Errorf("kv swap %s: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes key.
func (r *KVRepositoryPG) Delete(ctx context.Context, key string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QDeleteKV, key); err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

var _ domain.KeyValueStore = (*KVRepositoryPG)(nil)
