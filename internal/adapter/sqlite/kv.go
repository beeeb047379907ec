package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sitegen/internal/domain"
	"sitegen/internal/sqlinline"
)

// Get returns the document stored under key or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, sqlinline.QLiteSelectKV, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s: %w", key, err)
	}
	return value, nil
}

// Set overwrites the document under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, sqlinline.QLiteUpsertKV, key, value, s.timestamp()); err != nil {
		return fmt.Errorf("sqlite: set %s: %w", key, err)
	}
	return nil
}

// CompareAndSwap replaces the document under key while it still equals old.
func (s *Store) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	res, err := s.db.ExecContext(ctx, sqlinline.QLiteSwapKV, value, s.timestamp(), key, old)
	if err != nil {
		return false, fmt.Errorf("sqlite: swap %s: %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: swap %s: %w", key, err)
	}
	return affected == 1, nil
}

// Delete removes key; deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, sqlinline.QLiteDeleteKV, key); err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", key, err)
	}
	return nil
}

var _ domain.KeyValueStore = (*Store)(nil)
