package service

import (
	"Beacon/internal/model"
	"Beacon/internal/pkg/mongo"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

var errStoreDown = errors.New("mongo: server selection timeout")

// fakeMetricsRepo 内存版 post_metrics 集合
type fakeMetricsRepo struct {
	mu         sync.Mutex
	docs       map[string]*model.PostMetrics
	deleteFail map[string]int
	findErr    error
	upsertErr  error
}

func newFakeMetricsRepo() *fakeMetricsRepo {
	return &fakeMetricsRepo{
		docs:       make(map[string]*model.PostMetrics),
		deleteFail: make(map[string]int),
	}
}

func (r *fakeMetricsRepo) seed(list ...*model.PostMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range list {
		cp := *m
		r.docs[m.ID] = &cp
	}
}

func (r *fakeMetricsRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func (r *fakeMetricsRepo) Insert(_ context.Context, m *model.PostMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[m.ID]; ok {
		return mongoDB.WriteException{WriteErrors: []mongoDB.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	}
	cp := *m
	r.docs[m.ID] = &cp
	return nil
}

func (r *fakeMetricsRepo) Upsert(_ context.Context, m *model.PostMetrics) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return false, r.upsertErr
	}
	cp := *m
	if old, ok := r.docs[m.ID]; ok {
		cp.CreatedAt = old.CreatedAt
		r.docs[m.ID] = &cp
		return false, nil
	}
	r.docs[m.ID] = &cp
	return true, nil
}

func (r *fakeMetricsRepo) UpdateFields(_ context.Context, m *model.PostMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.docs[m.ID]
	if !ok {
		return mongoDB.ErrNoDocuments
	}
	cp := *m
	cp.CreatedAt = old.CreatedAt
	r.docs[m.ID] = &cp
	return nil
}

func (r *fakeMetricsRepo) GetByID(_ context.Context, id string) (*model.PostMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.docs[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeMetricsRepo) FindByPostAndPlatform(ctx context.Context, postID string, platform model.Platform) ([]*model.PostMetrics, error) {
	list, err := r.Find(ctx, mongo.MetricsQuery{PostIDs: []string{postID}, Platform: platform})
	if err != nil {
		return nil, err
	}
	// 与 Mongo 自然顺序一致：不做排序保证，这里按 ID 排列
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *fakeMetricsRepo) Find(_ context.Context, q mongo.MetricsQuery) ([]*model.PostMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	list := make([]*model.PostMetrics, 0)
	for _, m := range r.docs {
		if q.UserID != nil && m.UserID != *q.UserID {
			continue
		}
		if q.Platform != "" && m.Platform != q.Platform {
			continue
		}
		if len(q.PostIDs) > 0 && !contains(q.PostIDs, m.PostID) {
			continue
		}
		if !q.From.IsZero() && m.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && m.CreatedAt.After(q.To) {
			continue
		}
		cp := *m
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	if q.Limit > 0 && int64(len(list)) > q.Limit {
		list = list[:q.Limit]
	}
	return list, nil
}

func (r *fakeMetricsRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := r.deleteFail[id]; n > 0 {
		r.deleteFail[id] = n - 1
		return errStoreDown
	}
	delete(r.docs, id)
	return nil
}

func (r *fakeMetricsRepo) DeleteDuplicates(_ context.Context, postID string, platform model.Platform, keepID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, m := range r.docs {
		if m.PostID == postID && m.Platform == platform && id != keepID {
			delete(r.docs, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeMetricsRepo) EnsureIndexes(context.Context) error { return nil }

// fakePostRepo 内存版 posts 集合
type fakePostRepo struct {
	mu      sync.Mutex
	posts   map[string]*model.SocialPost
	cleared []string
	listErr error
}

func newFakePostRepo(posts ...*model.SocialPost) *fakePostRepo {
	r := &fakePostRepo{posts: make(map[string]*model.SocialPost)}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakePostRepo) GetPost(_ context.Context, id string) (*model.SocialPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id], nil
}

func (r *fakePostRepo) ListByUser(_ context.Context, userID uint64) ([]*model.SocialPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	list := make([]*model.SocialPost, 0)
	for _, p := range r.posts {
		if p.UserID == userID {
			list = append(list, p)
		}
	}
	sortPosts(list)
	return list, nil
}

func (r *fakePostRepo) ListLiveIDs(_ context.Context, userID *uint64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*model.SocialPost, 0)
	for _, p := range r.posts {
		if p.Status != model.PostStatusPublished || len(p.PlatformPostIDs) == 0 {
			continue
		}
		if userID != nil && p.UserID != *userID {
			continue
		}
		list = append(list, p)
	}
	sortPosts(list)
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *fakePostRepo) SetAnalyticsCache(_ context.Context, postID string, m *model.PostMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return nil
	}
	if p.Analytics == nil {
		p.Analytics = make(map[model.Platform]*model.PostMetrics)
	}
	cp := *m
	p.Analytics[m.Platform] = &cp
	return nil
}

func (r *fakePostRepo) ClearAnalyticsCache(_ context.Context, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, postID)
	if p, ok := r.posts[postID]; ok {
		p.Analytics = nil
	}
	return nil
}

func (r *fakePostRepo) EnsureIndexes(context.Context) error { return nil }

func sortPosts(list []*model.SocialPost) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

type fakeUserRepo struct {
	ids []uint64
}

func (r *fakeUserRepo) GetUserById(_ context.Context, id uint64) (*model.User, error) {
	for _, v := range r.ids {
		if v == id {
			return &model.User{ID: id}, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ListUserIDs(context.Context) ([]uint64, error) {
	return r.ids, nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// fakeFetcher 按平台侧 ID 返回预置指标，并记录每次调用时间
type fakeFetcher struct {
	platform model.Platform
	mu       sync.Mutex
	results  map[string]*model.PostMetrics
	calls    []time.Time
	called   []string
}

func newFakeFetcher(p model.Platform) *fakeFetcher {
	return &fakeFetcher{platform: p, results: make(map[string]*model.PostMetrics)}
}

func (f *fakeFetcher) Platform() model.Platform { return f.platform }

func (f *fakeFetcher) Fetch(_ context.Context, _ uint64, platformPostID string) *model.PostMetrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, time.Now())
	f.called = append(f.called, platformPostID)
	m, ok := f.results[platformPostID]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

func (f *fakeFetcher) TestConnection(context.Context, uint64) error { return nil }

func (f *fakeFetcher) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

// fixedClock 可手动推进的时钟
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

var baseTime = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func post(id string, userID uint64, createdOffset time.Duration, ids map[model.Platform]string, platforms ...model.Platform) *model.SocialPost {
	return &model.SocialPost{
		ID:              id,
		UserID:          userID,
		Content:         "content of " + id,
		Status:          model.PostStatusPublished,
		Platforms:       platforms,
		PlatformPostIDs: ids,
		CreatedAt:       baseTime.Add(createdOffset),
	}
}

func record(postID string, userID uint64, p model.Platform, likes, comments, shares, impressions, engagement int64) *model.PostMetrics {
	return &model.PostMetrics{
		ID:             model.MetricsKey(postID, p),
		PostID:         postID,
		UserID:         userID,
		Platform:       p,
		Likes:          likes,
		Comments:       comments,
		Shares:         shares,
		Impressions:    impressions,
		Engagement:     engagement,
		EngagementRate: model.EngagementRate(engagement, impressions),
		CreatedAt:      baseTime,
		UpdatedAt:      baseTime,
	}
}
