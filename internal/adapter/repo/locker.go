package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// AdvisoryLocker implements domain.Locker with Postgres session advisory
// locks. The lock lives as long as the acquired connection.
type AdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger infra.Logger
}

// NewAdvisoryLocker builds a locker over pool.
func NewAdvisoryLocker(pool *pgxpool.Pool, logger infra.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, logger: logger}
}

// TryLock returns domain.ErrLocked when another session holds name.
func (l *AdvisoryLocker) TryLock(ctx context.Context, name string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	runner := infra.NewSQLRunner(conn, l.logger)

	var ok bool
	if err := runner.QueryRow(ctx, sqlinline.QTryAdvisoryLock, name).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, domain.ErrLocked
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var unlocked bool
		if err := runner.QueryRow(unlockCtx, sqlinline.QAdvisoryUnlock, name).Scan(&unlocked); err != nil || !unlocked {
			l.logger.Warn().Err(err).Str("lock", name).Msg("advisory unlock failed; dropping connection")
			conn.Conn().Close(unlockCtx)
		}
		conn.Release()
	}, nil
}

var _ domain.Locker = (*AdvisoryLocker)(nil)
