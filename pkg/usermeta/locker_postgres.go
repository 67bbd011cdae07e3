package usermeta

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLocker takes a session-level advisory lock keyed by hashtext(key)
// and holds the connection until unlock.
type PostgresLocker struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPostgresLocker(pool *pgxpool.Pool, log *slog.Logger) *PostgresLocker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &PostgresLocker{pool: pool, log: log}
}

func (l *PostgresLocker) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Join(ErrLockFailed, err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		// a cancelled wait leaves the connection in an unknown state
		conn.Conn().Close(context.WithoutCancel(ctx))
		conn.Release()
		return nil, errors.Join(ErrLockFailed, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(uctx, `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
				l.log.ErrorContext(uctx, "failed to release advisory lock",
					slog.String("key", key), slog.Any("error", err))
				conn.Conn().Close(uctx)
			}
			conn.Release()
		})
	}, nil
}
