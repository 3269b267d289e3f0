package service

import (
	"Beacon/internal/model"
	"Beacon/internal/pkg/consts"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalSummaryAcrossUsers(t *testing.T) {
	posts := newFakePostRepo(
		post("a1", 1, 0, map[model.Platform]string{model.PlatformFacebook: "fb-a1"}),
		post("b1", 2, time.Hour, map[model.Platform]string{model.PlatformInstagram: "ig-b1"}),
	)
	repo := newFakeMetricsRepo()
	repo.seed(
		record("a1", 1, model.PlatformFacebook, 5, 2, 1, 0, 8),
		record("b1", 2, model.PlatformInstagram, 15, 5, 0, 0, 20),
	)
	svc := NewGlobalAnalyticsService(NewAnalyticsStore(repo), posts, &fakeUserRepo{ids: []uint64{1, 2}}, nil, time.Minute)

	summary, err := svc.GetGlobalSummary(context.Background())

	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.TotalUsers)
	assert.EqualValues(t, 2, summary.TotalPosts)
	assert.EqualValues(t, 28, summary.TotalEngagement)
	require.NotNil(t, summary.TopPerformingPost)
	assert.Equal(t, "b1", summary.TopPerformingPost.PostID)
	assert.EqualValues(t, 2, summary.TopPerformingPost.UserID)
	assert.EqualValues(t, 8, summary.PlatformBreakdown["facebook"].TotalEngagement)
	assert.EqualValues(t, 20, summary.PlatformBreakdown["instagram"].TotalEngagement)
}

func TestGlobalSummaryPostCountVersusPostsWithData(t *testing.T) {
	posts := newFakePostRepo(
		post("a1", 1, 0, map[model.Platform]string{model.PlatformTwitter: "t1"}),
		post("a2", 1, time.Minute, map[model.Platform]string{model.PlatformTwitter: "t2"}),
		post("a3", 1, 2*time.Minute, nil, model.PlatformTwitter),
	)
	repo := newFakeMetricsRepo()
	repo.seed(record("a1", 1, model.PlatformTwitter, 1, 1, 0, 20, 2))
	svc := NewGlobalAnalyticsService(NewAnalyticsStore(repo), posts, &fakeUserRepo{ids: []uint64{1}}, nil, time.Minute)

	summary, err := svc.GetGlobalSummary(context.Background())

	require.NoError(t, err)
	tw := summary.PlatformBreakdown["twitter"]
	assert.EqualValues(t, 2, tw.PostCount)
	assert.EqualValues(t, 1, tw.PostsWithData)
	assert.EqualValues(t, 3, tw.TotalPosts)
	assert.InDelta(t, 10.0, tw.AverageEngagementRate, 1e-9)
	assert.Zero(t, summary.PlatformBreakdown["facebook"].PostCount)
}

func TestGlobalSummaryTieKeepsFirstUser(t *testing.T) {
	posts := newFakePostRepo(
		post("a1", 1, time.Hour, map[model.Platform]string{model.PlatformFacebook: "x"}),
		post("b1", 2, 0, map[model.Platform]string{model.PlatformFacebook: "y"}),
	)
	repo := newFakeMetricsRepo()
	repo.seed(
		record("a1", 1, model.PlatformFacebook, 0, 0, 0, 0, 10),
		record("b1", 2, model.PlatformFacebook, 0, 0, 0, 0, 10),
	)
	svc := NewGlobalAnalyticsService(NewAnalyticsStore(repo), posts, &fakeUserRepo{ids: []uint64{1, 2}}, nil, time.Minute)

	summary, err := svc.GetGlobalSummary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "a1", summary.TopPerformingPost.PostID)
}

func TestGlobalSummaryIsCached(t *testing.T) {
	posts := newFakePostRepo(post("a1", 1, 0, map[model.Platform]string{model.PlatformFacebook: "x"}))
	repo := newFakeMetricsRepo()
	repo.seed(record("a1", 1, model.PlatformFacebook, 1, 0, 0, 0, 1))
	cache := newFakeCache()
	svc := NewGlobalAnalyticsService(NewAnalyticsStore(repo), posts, &fakeUserRepo{ids: []uint64{1}}, cache, time.Minute)
	ctx := context.Background()

	_, err := svc.GetGlobalSummary(ctx)
	require.NoError(t, err)
	require.True(t, cache.has(consts.AnalyticsGlobalSummaryKey))

	repo.seed(record("a1", 1, model.PlatformFacebook, 1, 0, 0, 0, 100))
	cached, err := svc.GetGlobalSummary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cached.TotalEngagement)
}

func TestGlobalSummaryIncludesBannedUsersAndOrphanRecords(t *testing.T) {
	posts := newFakePostRepo(
		post("a1", 1, 0, map[model.Platform]string{model.PlatformFacebook: "x"}),
		post("b1", 2, time.Minute, map[model.Platform]string{model.PlatformFacebook: "y"}),
	)
	repo := newFakeMetricsRepo()
	repo.seed(
		record("a1", 1, model.PlatformFacebook, 0, 0, 0, 0, 3),
		record("b1", 2, model.PlatformFacebook, 0, 0, 0, 0, 40),
		record("gone", 2, model.PlatformTwitter, 0, 0, 0, 0, 6),
	)
	// 用户 2 已封禁但未删除
	svc := NewGlobalAnalyticsService(NewAnalyticsStore(repo), posts, &fakeUserRepo{ids: []uint64{1, 2}}, nil, time.Minute)

	summary, err := svc.GetGlobalSummary(context.Background())

	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.TotalUsers)
	assert.EqualValues(t, 2, summary.TotalPosts)
	assert.EqualValues(t, 49, summary.TotalEngagement)
	assert.EqualValues(t, 2, summary.PlatformBreakdown["facebook"].PostCount)
	assert.EqualValues(t, 6, summary.PlatformBreakdown["twitter"].TotalEngagement)
	assert.Zero(t, summary.PlatformBreakdown["twitter"].PostsWithData)
	assert.Equal(t, "b1", summary.TopPerformingPost.PostID)
}

func TestGlobalSummaryNotCachedWhenUserSkipped(t *testing.T) {
	posts := newFakePostRepo(post("a1", 1, 0, map[model.Platform]string{model.PlatformFacebook: "x"}))
	posts.listErr = errStoreDown
	repo := newFakeMetricsRepo()
	repo.seed(record("a1", 1, model.PlatformFacebook, 1, 0, 0, 0, 1))
	cache := newFakeCache()
	svc := NewGlobalAnalyticsService(NewAnalyticsStore(repo), posts, &fakeUserRepo{ids: []uint64{1}}, cache, time.Minute)
	ctx := context.Background()

	_, err := svc.GetGlobalSummary(ctx)
	require.NoError(t, err)
	assert.False(t, cache.has(consts.AnalyticsGlobalSummaryKey))

	posts.mu.Lock()
	posts.listErr = nil
	posts.mu.Unlock()
	summary, err := svc.GetGlobalSummary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.TotalEngagement)
	assert.EqualValues(t, 1, summary.TotalPosts)
	assert.True(t, cache.has(consts.AnalyticsGlobalSummaryKey))
}
