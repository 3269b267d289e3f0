package service

import (
	"Beacon/internal/api/dto"
	"Beacon/internal/model"
	"Beacon/internal/pkg/consts"
	"Beacon/internal/pkg/mongo"
	"Beacon/internal/pkg/util"
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/jinzhu/copier"
)

const defaultRecordsLimit = 100

// UserAnalyticsService 单用户的分平台汇总，数据以 AnalyticsStore 为准
type UserAnalyticsService interface {
	GetUserSummary(ctx context.Context, userID uint64) (*dto.UserAnalyticsSummaryDTO, error)
	GetPlatformSummary(ctx context.Context, userID uint64, platform model.Platform) (*dto.PlatformSummaryDTO, error)
	GetPostMetrics(ctx context.Context, userID uint64, postID string) ([]*dto.PostMetricsDTO, error)
	ListRecords(ctx context.Context, userID uint64, q *dto.RecordsQuery) ([]*dto.PostMetricsDTO, error)
	Invalidate(ctx context.Context, userIDs ...uint64)
}

type userAnalyticsServiceImpl struct {
	store    AnalyticsStore
	postRepo mongo.SocialPostRepo
	cache    Cache
	ttl      time.Duration
	now      func() time.Time
}

func NewUserAnalyticsService(store AnalyticsStore, postRepo mongo.SocialPostRepo, cache Cache, ttl time.Duration) UserAnalyticsService {
	return &userAnalyticsServiceImpl{
		store:    store,
		postRepo: postRepo,
		cache:    cache,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *userAnalyticsServiceImpl) GetUserSummary(ctx context.Context, userID uint64) (*dto.UserAnalyticsSummaryDTO, error) {
	if userID == 0 {
		return nil, ErrParamInvalid
	}
	key := userSummaryKey(userID)
	summary := &dto.UserAnalyticsSummaryDTO{}
	if loadCached(ctx, s.cache, key, summary) {
		return summary, nil
	}

	summary, degraded := s.buildSummary(ctx, userID)
	if !degraded {
		storeCached(ctx, s.cache, key, summary, s.ttl)
	}
	return summary, nil
}

func (s *userAnalyticsServiceImpl) GetPlatformSummary(ctx context.Context, userID uint64, platform model.Platform) (*dto.PlatformSummaryDTO, error) {
	if !platform.Valid() {
		return nil, ErrPlatformUnsupported
	}
	summary, err := s.GetUserSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ps, ok := summary.Platforms[platform.String()]; ok {
		return ps, nil
	}
	return &dto.PlatformSummaryDTO{Platform: platform.String()}, nil
}

// GetPostMetrics 帖子在各平台的当前指标，仅帖子作者可见
func (s *userAnalyticsServiceImpl) GetPostMetrics(ctx context.Context, userID uint64, postID string) ([]*dto.PostMetricsDTO, error) {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		log.ErrorContext(ctx, "load post failed", "post_id", postID, "err", err)
		return nil, UnExpectedError
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.UserID != userID {
		return nil, UnauthorizedError
	}

	idx := indexMetrics(s.store.ListByPost(ctx, postID))
	res := make([]*dto.PostMetricsDTO, 0, len(idx))
	for _, p := range model.AllPlatforms {
		if m, ok := idx[model.MetricsKey(postID, p)]; ok {
			res = append(res, toPostMetricsDTO(m))
		}
	}
	return res, nil
}

// ListRecords 按平台/帖子/日期筛选当前用户自己的指标记录
func (s *userAnalyticsServiceImpl) ListRecords(ctx context.Context, userID uint64, q *dto.RecordsQuery) ([]*dto.PostMetricsDTO, error) {
	query := mongo.MetricsQuery{UserID: &userID, Limit: q.Limit}
	if q.Limit == 0 {
		query.Limit = defaultRecordsLimit
	}
	if q.Platform != "" {
		p, ok := model.ParsePlatform(q.Platform)
		if !ok {
			return nil, ErrPlatformUnsupported
		}
		query.Platform = p
	}
	if q.PostID != "" {
		query.PostIDs = []string{q.PostID}
	}
	from, to, err := util.ParseDayRange(q.From, q.To)
	if err != nil {
		return nil, ErrParamInvalid
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, ErrParamInvalid
	}
	query.From, query.To = from, to

	list := s.store.Query(ctx, query)
	res := make([]*dto.PostMetricsDTO, 0, len(list))
	for _, m := range list {
		res = append(res, toPostMetricsDTO(m))
	}
	return res, nil
}

func (s *userAnalyticsServiceImpl) Invalidate(ctx context.Context, userIDs ...uint64) {
	keys := make([]string, 0, len(userIDs)+1)
	for _, id := range userIDs {
		keys = append(keys, userSummaryKey(id))
	}
	keys = append(keys, consts.AnalyticsGlobalSummaryKey)
	dropCached(ctx, s.cache, keys...)
}

// buildSummary 平台桶按 store 中的记录累加，帖子只用于计数和补充正文。
// 帖子读取失败时仍按记录汇总，degraded 为 true，调用方不应缓存结果。
func (s *userAnalyticsServiceImpl) buildSummary(ctx context.Context, userID uint64) (summary *dto.UserAnalyticsSummaryDTO, degraded bool) {
	posts, err := s.postRepo.ListByUser(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "list user posts failed", "user_id", userID, "err", err)
		posts = nil
		degraded = true
	}
	idx := indexMetrics(s.store.ListByUser(ctx, userID, 0))

	platforms := make(map[model.Platform]*bucket, len(model.AllPlatforms))
	postCounts := make(map[model.Platform]int64, len(model.AllPlatforms))
	overall := &bucket{}

	for _, post := range posts {
		counted := false
		for _, p := range model.AllPlatforms {
			m := idx[model.MetricsKey(post.ID, p)]
			if !belongsTo(post, p, m) {
				continue
			}
			counted = true
			postCounts[p]++
			b, ok := platforms[p]
			if !ok {
				b = &bucket{}
				platforms[p] = b
			}
			if m == nil {
				continue
			}
			b.add(post, m)
			if overall.top == nil || m.Engagement > overall.top.Engagement {
				overall.top = topPost(post, m)
			}
		}
		if counted {
			overall.totals.TotalPosts++
		}
	}
	for _, m := range orphanMetrics(idx, posts) {
		b, ok := platforms[m.Platform]
		if !ok {
			b = &bucket{}
			platforms[m.Platform] = b
		}
		orphan := orphanPost(m)
		b.add(orphan, m)
		if overall.top == nil || m.Engagement > overall.top.Engagement {
			overall.top = topPost(orphan, m)
		}
	}

	summary = &dto.UserAnalyticsSummaryDTO{
		UserID:      userID,
		Platforms:   make(map[string]*dto.PlatformSummaryDTO, len(platforms)),
		GeneratedAt: s.now(),
	}
	for _, p := range model.AllPlatforms {
		b, ok := platforms[p]
		if !ok {
			continue
		}
		b.totals.TotalPosts = postCounts[p]
		overall.merge(b)
		summary.Platforms[p.String()] = &dto.PlatformSummaryDTO{
			Platform:     p.String(),
			MetricTotals: b.result(),
			TopPost:      b.top,
		}
	}
	summary.MetricTotals = overall.result()
	summary.TopPost = overall.top
	return summary, degraded
}

func userSummaryKey(userID uint64) string {
	return consts.AnalyticsUserSummaryKey + strconv.FormatUint(userID, 10)
}

func toPostMetricsDTO(m *model.PostMetrics) *dto.PostMetricsDTO {
	d := &dto.PostMetricsDTO{}
	_ = copier.Copy(d, m)
	d.Platform = m.Platform.String()
	return d
}
