package service

import (
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

// Cache 汇总结果缓存，未命中时 Get 返回 nil, nil
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// loadCached 命中缓存返回 true；缓存异常只记录日志，按未命中处理
func loadCached(ctx context.Context, cache Cache, key string, out any) bool {
	if cache == nil {
		return false
	}
	raw, err := cache.Get(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "summary cache read failed", "key", key, "err", err)
		return false
	}
	if raw == nil {
		return false
	}
	if err = json.Unmarshal(raw, out); err != nil {
		log.WarnContext(ctx, "summary cache decode failed", "key", key, "err", err)
		return false
	}
	return true
}

func storeCached(ctx context.Context, cache Cache, key string, value any, ttl time.Duration) {
	if cache == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err = cache.Set(ctx, key, raw, ttl); err != nil {
		log.WarnContext(ctx, "summary cache write failed", "key", key, "err", err)
	}
}

func dropCached(ctx context.Context, cache Cache, keys ...string) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		log.WarnContext(ctx, "summary cache invalidate failed", "keys", keys, "err", err)
	}
}
