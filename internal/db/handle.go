package db

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	pingTimeout    = 5 * time.Second
	connectTimeout = 10 * time.Second
)

// Handle owns the process-wide connection pool. The pool is created on first
// use, pinged again once it has been idle for longer than the health interval,
// and rebuilt when that ping fails.
type Handle struct {
	url      string
	interval time.Duration

	mu      sync.Mutex
	pool    *pgxpool.Pool
	checked time.Time
}

// NewHandle returns a handle that connects lazily to databaseURL.
func NewHandle(databaseURL string, healthInterval time.Duration) *Handle {
	return &Handle{url: databaseURL, interval: healthInterval}
}

// Pool returns a healthy pool, connecting or reconnecting as needed. ctx
// only gates entry: health pings and reconnects run on their own deadline so
// a caller that has gone away cannot get a working pool torn down.
func (h *Handle) Pool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pool != nil {
		if time.Since(h.checked) < h.interval {
			h.checked = time.Now()
			return h.pool, nil
		}
		err := ping(h.pool)
		if err == nil {
			h.checked = time.Now()
			return h.pool, nil
		}
		log.Warn().Err(err).Msg("database handle stale, reconnecting")
		// Close waits for acquired connections, so it must not hold h.mu.
		go h.pool.Close()
		h.pool = nil
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	pool, err := Connect(connectCtx, h.url)
	if err != nil {
		return nil, err
	}
	h.pool = pool
	h.checked = time.Now()
	return pool, nil
}

func ping(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return pool.Ping(ctx)
}

// Close releases the pool if one was opened.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pool != nil {
		h.pool.Close()
		h.pool = nil
	}
}
