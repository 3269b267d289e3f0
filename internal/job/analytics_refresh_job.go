package job

import (
	"Beacon/internal/pkg/consts"
	"Beacon/internal/pkg/logger"
	"Beacon/internal/service"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker 跨实例互斥，同一时间只允许一个批量刷新
type Locker interface {
	TryLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Extend(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, value string)
}

// RefreshTarget 刷新范围；PostIDs 优先，其次 UserID，都为空时刷新全部已上线帖子
type RefreshTarget struct {
	PostIDs []string
	UserID  *uint64
}

// AnalyticsRefreshJob 定时批量刷新全部已上线帖子的指标
type AnalyticsRefreshJob struct {
	updater service.AnalyticsUpdater
	locker  Locker
	lockTTL time.Duration
}

func NewAnalyticsRefreshJob(updater service.AnalyticsUpdater, locker Locker, lockTTL time.Duration) *AnalyticsRefreshJob {
	return &AnalyticsRefreshJob{
		updater: updater,
		locker:  locker,
		lockTTL: lockTTL,
	}
}

// Run cron 入口
func (s *AnalyticsRefreshJob) Run() {
	traceID := "job-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	res, err := s.Execute(ctx, RefreshTarget{})
	if err != nil {
		log.WarnContext(ctx, "analytics refresh job skipped", "err", err)
		return
	}
	log.InfoContext(ctx, "analytics refresh job done",
		"total", res.Total, "succeeded", res.Succeeded, "failed", res.Failed)
}

// Execute 持锁同步执行
func (s *AnalyticsRefreshJob) Execute(ctx context.Context, target RefreshTarget) (*service.BulkResult, error) {
	token, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer s.locker.Unlock(context.WithoutCancel(ctx), consts.AnalyticsRefreshLock, token)
	defer s.keepAlive(ctx, token)()
	return s.run(ctx, target)
}

// Trigger 同步抢锁后在后台执行，供管理端接口使用；返回前不等待刷新完成
func (s *AnalyticsRefreshJob) Trigger(ctx context.Context, target RefreshTarget) error {
	token, err := s.lock(ctx)
	if err != nil {
		return err
	}

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.locker.Unlock(bgCtx, consts.AnalyticsRefreshLock, token)
		defer s.keepAlive(bgCtx, token)()
		res, err := s.run(bgCtx, target)
		if err != nil {
			log.ErrorContext(bgCtx, "triggered analytics refresh failed", "err", err)
			return
		}
		log.InfoContext(bgCtx, "triggered analytics refresh done",
			"total", res.Total, "succeeded", res.Succeeded, "failed", res.Failed)
	}()
	return nil
}

func (s *AnalyticsRefreshJob) lock(ctx context.Context) (string, error) {
	token := uuid.NewString()
	ok, err := s.locker.TryLock(ctx, consts.AnalyticsRefreshLock, token, s.lockTTL)
	if err != nil {
		log.ErrorContext(ctx, "acquire analytics refresh lock failed", "err", err)
		return "", service.UnExpectedError
	}
	if !ok {
		return "", service.ErrRefreshRunning
	}
	return token, nil
}

// keepAlive 刷新期间每隔 lockTTL/3 续期一次，返回的函数停止续期并等待退出
func (s *AnalyticsRefreshJob) keepAlive(ctx context.Context, token string) (stop func()) {
	interval := s.lockTTL / 3
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := s.locker.Extend(ctx, consts.AnalyticsRefreshLock, token, s.lockTTL)
				if err != nil {
					log.WarnContext(ctx, "extend analytics refresh lock failed", "err", err)
					continue
				}
				if !ok {
					log.WarnContext(ctx, "analytics refresh lock lost")
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (s *AnalyticsRefreshJob) run(ctx context.Context, target RefreshTarget) (*service.BulkResult, error) {
	switch {
	case len(target.PostIDs) > 0:
		return s.updater.BulkUpdate(ctx, target.PostIDs), nil
	case target.UserID != nil:
		return s.updater.RefreshUser(ctx, *target.UserID)
	default:
		return s.updater.RefreshAll(ctx)
	}
}
