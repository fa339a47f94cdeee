// Package cache holds the verdict cache shared between engine replicas.
// Every failure degrades to a miss; the caller recomputes.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/ringguard/internal/core/observability"
)

const cacheName = "verdict"

// Store is the byte-level backend (redisstore.Client).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Verdicts struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	log     *slog.Logger
}

func NewVerdicts(store Store, ttl, opTimeout time.Duration, log *slog.Logger) *Verdicts {
	if log == nil {
		log = slog.Default()
	}
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Verdicts{store: store, ttl: ttl, timeout: opTimeout, log: log}
}

// Load decodes the cached value for key into dst. A nil receiver always
// misses. Entries that no longer decode are removed so the next Save can
// replace them.
func (v *Verdicts) Load(ctx context.Context, key string, dst any) bool {
	if v == nil || v.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	b, ok, err := v.store.Get(ctx, key)
	if err != nil {
		observability.ObserveCacheOp(cacheName, "get", "error")
		v.log.WarnContext(ctx, "verdict cache read failed", "key", key, "err", err)
		return false
	}
	if !ok {
		observability.ObserveCacheOp(cacheName, "get", "miss")
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		observability.ObserveCacheOp(cacheName, "get", "corrupt")
		v.log.WarnContext(ctx, "verdict cache entry undecodable", "key", key, "err", err)
		if err := v.store.Del(ctx, key); err != nil {
			observability.ObserveCacheOp(cacheName, "del", "error")
			v.log.WarnContext(ctx, "verdict cache evict failed", "key", key, "err", err)
		}
		return false
	}
	observability.ObserveCacheOp(cacheName, "get", "hit")
	return true
}

func (v *Verdicts) Save(ctx context.Context, key string, val any) {
	if v == nil || v.store == nil {
		return
	}
	b, err := json.Marshal(val)
	if err != nil {
		v.log.WarnContext(ctx, "verdict cache encode failed", "key", key, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	if err := v.store.Set(ctx, key, b, v.ttl); err != nil {
		observability.ObserveCacheOp(cacheName, "set", "error")
		v.log.WarnContext(ctx, "verdict cache write failed", "key", key, "err", err)
		return
	}
	observability.ObserveCacheOp(cacheName, "set", "ok")
}
