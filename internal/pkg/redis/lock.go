package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker 基于 SET NX 的分布式锁
type Locker struct {
	client redis.UniversalClient
}

func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// TryLock 单次抢占，不重试
func (l *Locker) TryLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, value, ttl).Result()
}

// Unlock 仅当持有者一致时删除
func (l *Locker) Unlock(ctx context.Context, key, value string) {
	l.client.Eval(ctx, unlockScript, []string{key}, value)
}

// Extend 仅当持有者一致时续期，返回 false 表示锁已丢失
func (l *Locker) Extend(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	n, err := l.client.Eval(ctx, extendScript, []string{key}, value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
