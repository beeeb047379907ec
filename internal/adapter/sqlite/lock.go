package sqlite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitegen/internal/domain"
	"sitegen/internal/sqlinline"
)

// LockLease bounds how long a crashed holder keeps the lock.
const LockLease = 2 * time.Minute

// TryLock claims the named lock row. The lease is refreshed in the background
// until unlock is called.
func (s *Store) TryLock(ctx context.Context, name string) (func(), error) {
	owner := uuid.NewString()
	now := s.now()
	res, err := s.db.ExecContext(ctx, sqlinline.QLiteAcquireLock, name, owner, now.Add(LockLease).UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("sqlite: acquire lock %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: acquire lock %s: %w", name, err)
	}
	if affected == 0 {
		return nil, domain.ErrLocked
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(LockLease / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				expires := s.now().Add(LockLease).UnixMilli()
				if _, err := s.db.Exec(sqlinline.QLiteRefreshLock, expires, name, owner); err != nil {
					s.logger.Warn().Err(err).Str("lock", name).Msg("lock refresh failed")
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			if _, err := s.db.Exec(sqlinline.QLiteReleaseLock, name, owner); err != nil {
				s.logger.Warn().Err(err).Str("lock", name).Msg("lock release failed")
			}
		})
	}, nil
}

var _ domain.Locker = (*Store)(nil)
