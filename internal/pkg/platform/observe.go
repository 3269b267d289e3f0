package platform

import (
	"Beacon/internal/model"
	"Beacon/internal/pkg/metrics"
	"context"
	log "log/slog"
	"time"
)

const outcomeOK = "ok"

// giveUp 记录一次放弃拉取的原因并返回 nil，Fetch 的所有失败出口都经由这里
func giveUp(ctx context.Context, platform model.Platform, postID string, start time.Time, err error) *model.PostMetrics {
	kind := KindOf(err)
	fields := []any{
		log.String("platform", platform.String()),
		log.String("platform_post_id", postID),
		log.String("kind", string(kind)),
		log.Any("err", err),
	}
	switch kind {
	case KindNotConnected, KindPermission, KindNotFound:
		log.InfoContext(ctx, "platform metrics unavailable", fields...)
	default:
		log.WarnContext(ctx, "platform metrics fetch failed", fields...)
	}
	metrics.ObserveFetch(platform.String(), string(kind), time.Since(start).Seconds())
	return nil
}

func succeed(platform model.Platform, start time.Time, m *model.PostMetrics) *model.PostMetrics {
	metrics.ObserveFetch(platform.String(), outcomeOK, time.Since(start).Seconds())
	return m
}
