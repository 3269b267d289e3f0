package service

import (
	"Beacon/internal/model"
	"Beacon/internal/pkg/metrics"
	"Beacon/internal/pkg/mongo"
	"Beacon/internal/pkg/platform"
	"context"
	log "log/slog"
	"time"

	"github.com/pkg/errors"
)

// DefaultBulkDelay 批量刷新时相邻两个帖子之间的固定间隔，也是配置允许的下限
const DefaultBulkDelay = 2 * time.Second

// ClampBulkDelay 配置值低于 DefaultBulkDelay 时按下限处理
func ClampBulkDelay(d time.Duration) time.Duration {
	if d < DefaultBulkDelay {
		return DefaultBulkDelay
	}
	return d
}

// RefreshResult 单个帖子一次刷新的逐平台结果
type RefreshResult struct {
	PostID  string
	UserID  uint64
	Updated []model.Platform
	Skipped []model.Platform
	Failed  []model.Platform
}

// BulkResult 批量刷新汇总；单个帖子失败不会中断批次
type BulkResult struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled bool
	Results   []*RefreshResult
}

type AnalyticsUpdater interface {
	RefreshPost(ctx context.Context, postID string) (*RefreshResult, error)
	RefreshOwnPost(ctx context.Context, userID uint64, postID string) (*RefreshResult, error)
	BulkUpdate(ctx context.Context, postIDs []string) *BulkResult
	RefreshUser(ctx context.Context, userID uint64) (*BulkResult, error)
	RefreshAll(ctx context.Context) (*BulkResult, error)
	RemovePost(ctx context.Context, postID string) (*DeleteReport, error)
	RemoveOwnPost(ctx context.Context, userID uint64, postID string) (*DeleteReport, error)
}

type analyticsUpdaterImpl struct {
	store    AnalyticsStore
	postRepo mongo.SocialPostRepo
	fetchers map[model.Platform]platform.Fetcher
	users    UserAnalyticsService
	delay    time.Duration
}

// NewAnalyticsUpdater delay 原样生效，负数按默认值；生产配置应先经过 ClampBulkDelay
func NewAnalyticsUpdater(
	store AnalyticsStore,
	postRepo mongo.SocialPostRepo,
	fetchers map[model.Platform]platform.Fetcher,
	users UserAnalyticsService,
	delay time.Duration,
) AnalyticsUpdater {
	if delay < 0 {
		delay = DefaultBulkDelay
	}
	return &analyticsUpdaterImpl{
		store:    store,
		postRepo: postRepo,
		fetchers: fetchers,
		users:    users,
		delay:    delay,
	}
}

// RefreshPost 依次拉取帖子已上线平台的指标并写入 store，同时回写帖子内嵌缓存。
// 拉取不到数据的平台记为 skipped；写入失败的平台记为 failed 并返回最后一个错误。
func (s *analyticsUpdaterImpl) RefreshPost(ctx context.Context, postID string) (*RefreshResult, error) {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, errors.Wrapf(err, "load post %s", postID)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return s.refresh(ctx, post)
}

func (s *analyticsUpdaterImpl) RefreshOwnPost(ctx context.Context, userID uint64, postID string) (*RefreshResult, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, post)
}

func (s *analyticsUpdaterImpl) refresh(ctx context.Context, post *model.SocialPost) (*RefreshResult, error) {
	res := &RefreshResult{
		PostID:  post.ID,
		UserID:  post.UserID,
		Updated: make([]model.Platform, 0),
		Skipped: make([]model.Platform, 0),
		Failed:  make([]model.Platform, 0),
	}

	var lastErr error
	for _, p := range model.AllPlatforms {
		platformPostID := post.PlatformPostID(p)
		if platformPostID == "" {
			continue
		}
		fetcher, ok := s.fetchers[p]
		if !ok {
			res.Skipped = append(res.Skipped, p)
			continue
		}

		m := fetcher.Fetch(ctx, post.UserID, platformPostID)
		if m == nil {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		m.PostID = post.ID
		m.UserID = post.UserID
		m.Platform = p
		m.PlatformPostID = platformPostID

		stored, err := s.store.Upsert(ctx, m)
		if err != nil {
			log.ErrorContext(ctx, "store metrics failed", "post_id", post.ID, "platform", p.String(), "err", err)
			res.Failed = append(res.Failed, p)
			lastErr = err
			continue
		}
		res.Updated = append(res.Updated, p)

		if err = s.postRepo.SetAnalyticsCache(ctx, post.ID, stored); err != nil {
			log.WarnContext(ctx, "refresh embedded analytics failed", "post_id", post.ID, "platform", p.String(), "err", err)
		}
	}

	if len(res.Updated) > 0 && s.users != nil {
		s.users.Invalidate(ctx, post.UserID)
	}

	log.InfoContext(ctx, "post analytics refreshed",
		"post_id", post.ID,
		"updated", len(res.Updated),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
	)
	if lastErr != nil {
		return res, lastErr
	}
	return res, nil
}

// BulkUpdate 顺序刷新，相邻帖子之间固定等待 delay；ctx 取消时停止并标记 Cancelled
func (s *analyticsUpdaterImpl) BulkUpdate(ctx context.Context, postIDs []string) *BulkResult {
	res := &BulkResult{
		Total:   len(postIDs),
		Results: make([]*RefreshResult, 0, len(postIDs)),
	}

	for i, postID := range postIDs {
		if i > 0 && !wait(ctx, s.delay) {
			res.Cancelled = true
			break
		}
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		r, err := s.RefreshPost(ctx, postID)
		if r != nil {
			res.Results = append(res.Results, r)
		}
		if err != nil {
			res.Failed++
			metrics.ObserveBulkPost("failed")
			log.WarnContext(ctx, "bulk refresh post failed", "post_id", postID, "err", err)
			continue
		}
		res.Succeeded++
		metrics.ObserveBulkPost("ok")
	}

	log.InfoContext(ctx, "bulk analytics refresh finished",
		"total", res.Total,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"cancelled", res.Cancelled,
	)
	return res
}

func (s *analyticsUpdaterImpl) RefreshUser(ctx context.Context, userID uint64) (*BulkResult, error) {
	ids, err := s.postRepo.ListLiveIDs(ctx, &userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list live posts of user %d", userID)
	}
	return s.BulkUpdate(ctx, ids), nil
}

func (s *analyticsUpdaterImpl) RefreshAll(ctx context.Context) (*BulkResult, error) {
	ids, err := s.postRepo.ListLiveIDs(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list live posts")
	}
	return s.BulkUpdate(ctx, ids), nil
}

// RemovePost 级联删除帖子的全部指标，并清理内嵌缓存与汇总缓存
func (s *analyticsUpdaterImpl) RemovePost(ctx context.Context, postID string) (*DeleteReport, error) {
	owners := make(map[uint64]struct{})
	for _, m := range s.store.ListByPost(ctx, postID) {
		owners[m.UserID] = struct{}{}
	}

	report, err := s.store.DeleteByPost(ctx, postID)
	if report != nil && len(report.Deleted) > 0 {
		if cacheErr := s.postRepo.ClearAnalyticsCache(ctx, postID); cacheErr != nil {
			log.WarnContext(ctx, "clear embedded analytics failed", "post_id", postID, "err", cacheErr)
		}
		if s.users != nil {
			ids := make([]uint64, 0, len(owners))
			for id := range owners {
				ids = append(ids, id)
			}
			s.users.Invalidate(ctx, ids...)
		}
	}
	return report, err
}

func (s *analyticsUpdaterImpl) RemoveOwnPost(ctx context.Context, userID uint64, postID string) (*DeleteReport, error) {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return nil, err
	}
	return s.RemovePost(ctx, postID)
}

func (s *analyticsUpdaterImpl) ownedPost(ctx context.Context, userID uint64, postID string) (*model.SocialPost, error) {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, errors.Wrapf(err, "load post %s", postID)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.UserID != userID {
		return nil, UnauthorizedError
	}
	return post, nil
}

// wait 等待 d，期间 ctx 结束则返回 false
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
