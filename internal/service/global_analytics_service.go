package service

import (
	"Beacon/internal/api/dto"
	"Beacon/internal/model"
	"Beacon/internal/pkg/consts"
	"Beacon/internal/pkg/mongo"
	"Beacon/internal/repository"
	"context"
	log "log/slog"
	"time"
)

// GlobalAnalyticsService 管理端全站汇总
type GlobalAnalyticsService interface {
	GetGlobalSummary(ctx context.Context) (*dto.GlobalSummaryDTO, error)
}

type globalAnalyticsServiceImpl struct {
	store    AnalyticsStore
	postRepo mongo.SocialPostRepo
	userRepo repository.UserRepo
	cache    Cache
	ttl      time.Duration
	now      func() time.Time
}

func NewGlobalAnalyticsService(store AnalyticsStore, postRepo mongo.SocialPostRepo, userRepo repository.UserRepo, cache Cache, ttl time.Duration) GlobalAnalyticsService {
	return &globalAnalyticsServiceImpl{
		store:    store,
		postRepo: postRepo,
		userRepo: userRepo,
		cache:    cache,
		ttl:      ttl,
		now:      time.Now,
	}
}

// GetGlobalSummary 遍历所有未删除用户（含封禁）的全部帖子；用户按 ID、帖子按创建时间、平台按固定顺序遍历。
// 指标以 store 记录为准，找不到帖子的记录只计入合计；任一用户读取失败时结果不缓存。
func (s *globalAnalyticsServiceImpl) GetGlobalSummary(ctx context.Context) (*dto.GlobalSummaryDTO, error) {
	summary := &dto.GlobalSummaryDTO{}
	if loadCached(ctx, s.cache, consts.AnalyticsGlobalSummaryKey, summary) {
		return summary, nil
	}

	userIDs, err := s.userRepo.ListUserIDs(ctx)
	if err != nil {
		log.ErrorContext(ctx, "list users failed", "err", err)
		return nil, UnExpectedError
	}

	type platformAcc struct {
		bucket
		postCount     int64
		postsWithData int64
		referenced    int64
	}
	accs := make(map[model.Platform]*platformAcc, len(model.AllPlatforms))
	for _, p := range model.AllPlatforms {
		accs[p] = &platformAcc{}
	}
	overall := &bucket{}
	degraded := false

	for _, userID := range userIDs {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		posts, err := s.postRepo.ListByUser(ctx, userID)
		if err != nil {
			log.WarnContext(ctx, "list user posts failed, skipping user", "user_id", userID, "err", err)
			degraded = true
			continue
		}
		idx := indexMetrics(s.store.ListByUser(ctx, userID, 0))

		for _, post := range posts {
			overall.totals.TotalPosts++
			for _, p := range model.AllPlatforms {
				acc := accs[p]
				m := idx[model.MetricsKey(post.ID, p)]
				if post.IsLiveOn(p) {
					acc.postCount++
				}
				if !belongsTo(post, p, m) {
					continue
				}
				acc.referenced++
				if m == nil {
					continue
				}
				acc.postsWithData++
				acc.add(post, m)
				if overall.top == nil || m.Engagement > overall.top.Engagement {
					overall.top = topPost(post, m)
				}
			}
		}
		for _, m := range orphanMetrics(idx, posts) {
			acc, ok := accs[m.Platform]
			if !ok {
				continue
			}
			orphan := orphanPost(m)
			acc.add(orphan, m)
			if overall.top == nil || m.Engagement > overall.top.Engagement {
				overall.top = topPost(orphan, m)
			}
		}
	}

	summary = &dto.GlobalSummaryDTO{
		TotalUsers:        int64(len(userIDs)),
		PlatformBreakdown: make(map[string]*dto.GlobalPlatformDTO, len(accs)),
		GeneratedAt:       s.now(),
	}
	for _, p := range model.AllPlatforms {
		acc := accs[p]
		acc.totals.TotalPosts = acc.referenced
		overall.merge(&acc.bucket)
		summary.PlatformBreakdown[p.String()] = &dto.GlobalPlatformDTO{
			Platform:      p.String(),
			MetricTotals:  acc.result(),
			PostCount:     acc.postCount,
			PostsWithData: acc.postsWithData,
			TopPost:       acc.top,
		}
	}
	summary.MetricTotals = overall.result()
	summary.TopPerformingPost = overall.top

	if !degraded {
		storeCached(ctx, s.cache, consts.AnalyticsGlobalSummaryKey, summary, s.ttl)
	}
	return summary, nil
}
