package service

import (
	"Beacon/internal/model"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(repo *fakeMetricsRepo) (*analyticsStoreImpl, *fixedClock) {
	clock := &fixedClock{t: baseTime}
	store := NewAnalyticsStore(repo).(*analyticsStoreImpl)
	store.now = clock.Now
	return store, clock
}

func TestUpsertComputesEngagementRate(t *testing.T) {
	repo := newFakeMetricsRepo()
	store, _ := newTestStore(repo)

	stored, err := store.Upsert(context.Background(), &model.PostMetrics{
		PostID:      "p1",
		Platform:    model.PlatformTwitter,
		Likes:       10,
		Impressions: 100,
		Engagement:  15,
	})

	require.NoError(t, err)
	assert.Equal(t, "p1_twitter", stored.ID)
	assert.InDelta(t, 15.0, stored.EngagementRate, 1e-9)

	got := store.GetByPostAndPlatform(context.Background(), "p1", model.PlatformTwitter)
	require.NotNil(t, got)
	assert.InDelta(t, 15.0, got.EngagementRate, 1e-9)
}

func TestUpsertTwiceKeepsSingleRecord(t *testing.T) {
	repo := newFakeMetricsRepo()
	store, clock := newTestStore(repo)
	ctx := context.Background()
	m := &model.PostMetrics{PostID: "p1", Platform: model.PlatformFacebook, Likes: 4, Impressions: 80, Engagement: 8}

	first, err := store.Upsert(ctx, m)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := store.Upsert(ctx, m)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.count())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.EngagementRate, second.EngagementRate)

	got := store.GetByPostAndPlatform(ctx, "p1", model.PlatformFacebook)
	require.NotNil(t, got)
	assert.Equal(t, baseTime, got.CreatedAt)
	assert.Equal(t, baseTime.Add(time.Minute), got.UpdatedAt)
	assert.Equal(t, baseTime.Add(time.Minute), got.LastFetchedAt)
}

func TestConcurrentUpsertsKeepSingleRecord(t *testing.T) {
	repo := newFakeMetricsRepo()
	store, _ := newTestStore(repo)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_, err := store.Upsert(context.Background(), &model.PostMetrics{
				PostID: "p1", Platform: model.PlatformInstagram, Likes: n, Impressions: 100,
			})
			assert.NoError(t, err)
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, repo.count())
}

func TestGetByPostAndPlatformResolvesDuplicatesByLastTouched(t *testing.T) {
	repo := newFakeMetricsRepo()
	repo.seed(
		&model.PostMetrics{ID: "a", PostID: "p1", Platform: model.PlatformFacebook, Likes: 1,
			CreatedAt: baseTime, UpdatedAt: baseTime.Add(3 * time.Hour)},
		&model.PostMetrics{ID: "b", PostID: "p1", Platform: model.PlatformFacebook, Likes: 2,
			CreatedAt: baseTime.Add(2 * time.Hour), UpdatedAt: baseTime.Add(2 * time.Hour)},
	)
	store, _ := newTestStore(repo)

	got := store.GetByPostAndPlatform(context.Background(), "p1", model.PlatformFacebook)

	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)
	assert.Nil(t, store.GetByPostAndPlatform(context.Background(), "p1", model.PlatformTwitter))
}

func TestUpsertCollapsesLegacyDuplicates(t *testing.T) {
	repo := newFakeMetricsRepo()
	legacyCreated := baseTime.Add(-48 * time.Hour)
	repo.seed(
		&model.PostMetrics{ID: "legacy-1", PostID: "p1", Platform: model.PlatformFacebook,
			CreatedAt: legacyCreated, UpdatedAt: legacyCreated.Add(time.Hour)},
		&model.PostMetrics{ID: "legacy-2", PostID: "p1", Platform: model.PlatformFacebook,
			CreatedAt: legacyCreated.Add(time.Minute), UpdatedAt: legacyCreated.Add(time.Minute)},
	)
	store, _ := newTestStore(repo)

	stored, err := store.Upsert(context.Background(), &model.PostMetrics{
		PostID: "p1", Platform: model.PlatformFacebook, Likes: 5, Comments: 2, Shares: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, legacyCreated, stored.CreatedAt)
	assert.EqualValues(t, 8, stored.Engagement)
}

func TestUpsertDerivesEngagementAndZeroRate(t *testing.T) {
	store, _ := newTestStore(newFakeMetricsRepo())

	stored, err := store.Upsert(context.Background(), &model.PostMetrics{
		PostID: "p1", Platform: model.PlatformInstagram, Likes: 3, Comments: 2, Shares: 1, Saves: 4,
	})

	require.NoError(t, err)
	assert.EqualValues(t, 10, stored.Engagement)
	assert.Zero(t, stored.EngagementRate)
}

func TestUpsertRejectsInvalidInput(t *testing.T) {
	store, _ := newTestStore(newFakeMetricsRepo())
	ctx := context.Background()

	_, err := store.Upsert(ctx, &model.PostMetrics{Platform: model.PlatformFacebook})
	assert.ErrorIs(t, err, ErrParamInvalid)
	_, err = store.Upsert(ctx, &model.PostMetrics{PostID: "p1", Platform: "myspace"})
	assert.ErrorIs(t, err, ErrPlatformUnsupported)
	_, err = store.Upsert(ctx, &model.PostMetrics{PostID: "p1", Platform: model.PlatformFacebook, Likes: -1})
	assert.ErrorIs(t, err, ErrParamInvalid)
}

func TestUpsertPropagatesWriteFailure(t *testing.T) {
	repo := newFakeMetricsRepo()
	repo.upsertErr = errStoreDown
	store, _ := newTestStore(repo)

	_, err := store.Upsert(context.Background(), &model.PostMetrics{PostID: "p1", Platform: model.PlatformFacebook})

	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestSaveRejectsExistingKey(t *testing.T) {
	store, _ := newTestStore(newFakeMetricsRepo())
	ctx := context.Background()
	m := &model.PostMetrics{PostID: "p1", Platform: model.PlatformTwitter, Likes: 1}

	id, err := store.Save(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "p1_twitter", id)

	_, err = store.Save(ctx, m)
	assert.ErrorIs(t, err, ErrMetricsExist)
}

func TestUpdateRecomputesRateFromMergedValues(t *testing.T) {
	repo := newFakeMetricsRepo()
	repo.seed(record("p1", 1, model.PlatformFacebook, 5, 2, 1, 100, 8))
	store, clock := newTestStore(repo)
	clock.Advance(time.Hour)

	impressions := int64(200)
	updated, err := store.Update(context.Background(), "p1_facebook", &model.MetricsPatch{Impressions: &impressions})

	require.NoError(t, err)
	assert.InDelta(t, 4.0, updated.EngagementRate, 1e-9)
	assert.EqualValues(t, 8, updated.Engagement)
	assert.Equal(t, baseTime, updated.CreatedAt)
	assert.Equal(t, baseTime.Add(time.Hour), updated.UpdatedAt)

	engagement := int64(50)
	updated, err = store.Update(context.Background(), "p1_facebook", &model.MetricsPatch{Engagement: &engagement})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, updated.EngagementRate, 1e-9)
}

func TestUpdateMissingRecord(t *testing.T) {
	store, _ := newTestStore(newFakeMetricsRepo())
	likes := int64(1)

	_, err := store.Update(context.Background(), "nope", &model.MetricsPatch{Likes: &likes})

	assert.ErrorIs(t, err, ErrMetricsNotFound)
}

func TestDeleteByPostRemovesEveryPlatform(t *testing.T) {
	repo := newFakeMetricsRepo()
	repo.seed(
		record("p1", 1, model.PlatformFacebook, 1, 0, 0, 0, 1),
		record("p1", 1, model.PlatformInstagram, 1, 0, 0, 0, 1),
		record("p1", 1, model.PlatformTwitter, 1, 0, 0, 0, 1),
		record("p2", 1, model.PlatformTwitter, 1, 0, 0, 0, 1),
	)
	store, _ := newTestStore(repo)

	report, err := store.DeleteByPost(context.Background(), "p1")

	require.NoError(t, err)
	assert.Len(t, report.Deleted, 3)
	assert.Empty(t, report.Failed)
	assert.Empty(t, store.ListByPost(context.Background(), "p1"))
	assert.Len(t, store.ListByPost(context.Background(), "p2"), 1)
}

func TestDeleteByPostRetriesFailedRecordOnce(t *testing.T) {
	repo := newFakeMetricsRepo()
	repo.seed(
		record("p1", 1, model.PlatformFacebook, 1, 0, 0, 0, 1),
		record("p1", 1, model.PlatformTwitter, 1, 0, 0, 0, 1),
	)
	repo.deleteFail["p1_twitter"] = 1
	store, _ := newTestStore(repo)

	report, err := store.DeleteByPost(context.Background(), "p1")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1_facebook", "p1_twitter"}, report.Deleted)
	assert.Zero(t, repo.count())
}

func TestDeleteByPostReportsPartialFailure(t *testing.T) {
	repo := newFakeMetricsRepo()
	repo.seed(
		record("p1", 1, model.PlatformFacebook, 1, 0, 0, 0, 1),
		record("p1", 1, model.PlatformTwitter, 1, 0, 0, 0, 1),
	)
	repo.deleteFail["p1_twitter"] = 2
	store, _ := newTestStore(repo)

	report, err := store.DeleteByPost(context.Background(), "p1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialDelete)
	var partial *PartialDeleteError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, []string{"p1_twitter"}, partial.FailedIDs)
	assert.Equal(t, []string{"p1_facebook"}, report.Deleted)
	assert.Equal(t, []string{"p1_twitter"}, report.Failed)
}

func TestListingQueries(t *testing.T) {
	repo := newFakeMetricsRepo()
	older := record("p1", 1, model.PlatformFacebook, 1, 0, 0, 0, 1)
	older.CreatedAt = baseTime.Add(-24 * time.Hour)
	newer := record("p2", 1, model.PlatformTwitter, 1, 0, 0, 0, 1)
	other := record("p3", 2, model.PlatformTwitter, 1, 0, 0, 0, 1)
	other.CreatedAt = baseTime.Add(time.Hour)
	repo.seed(older, newer, other)
	store, _ := newTestStore(repo)
	ctx := context.Background()

	byUser := store.ListByUser(ctx, 1, 0)
	require.Len(t, byUser, 2)
	assert.Equal(t, "p2_twitter", byUser[0].ID)

	assert.Len(t, store.ListByUser(ctx, 1, 1), 1)
	assert.Len(t, store.ListByPlatform(ctx, model.PlatformTwitter, 10), 2)
	assert.Len(t, store.ListByDateRange(ctx, baseTime.Add(-time.Hour), baseTime.Add(2*time.Hour), 10), 2)
}

func TestReadsFailSoft(t *testing.T) {
	repo := newFakeMetricsRepo()
	repo.findErr = errStoreDown
	store, _ := newTestStore(repo)
	ctx := context.Background()

	assert.Nil(t, store.GetByPostAndPlatform(ctx, "p1", model.PlatformFacebook))
	assert.Empty(t, store.ListByUser(ctx, 1, 10))
	assert.Empty(t, store.ListByPlatform(ctx, model.PlatformFacebook, 10))
	assert.Empty(t, store.ListByDateRange(ctx, time.Time{}, time.Time{}, 10))

	_, err := store.DeleteByPost(ctx, "p1")
	assert.ErrorIs(t, err, errStoreDown)
}
