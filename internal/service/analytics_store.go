package service

import (
	"Beacon/internal/model"
	"Beacon/internal/pkg/metrics"
	"Beacon/internal/pkg/mongo"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// AnalyticsStore 帖子指标的持久化入口。
// 写操作返回错误；读操作失败时记录日志并返回空结果，保证看板降级为“暂无数据”。
type AnalyticsStore interface {
	Save(ctx context.Context, m *model.PostMetrics) (string, error)
	Update(ctx context.Context, id string, patch *model.MetricsPatch) (*model.PostMetrics, error)
	GetByPostAndPlatform(ctx context.Context, postID string, platform model.Platform) *model.PostMetrics
	Upsert(ctx context.Context, m *model.PostMetrics) (*model.PostMetrics, error)
	DeleteByPost(ctx context.Context, postID string) (*DeleteReport, error)
	ListByDateRange(ctx context.Context, from, to time.Time, limit int64) []*model.PostMetrics
	ListByUser(ctx context.Context, userID uint64, limit int64) []*model.PostMetrics
	ListByPlatform(ctx context.Context, platform model.Platform, limit int64) []*model.PostMetrics
	ListByPost(ctx context.Context, postID string) []*model.PostMetrics
	Query(ctx context.Context, q mongo.MetricsQuery) []*model.PostMetrics
}

// DeleteReport 级联删除的逐条结果
type DeleteReport struct {
	PostID  string
	Deleted []string
	Failed  []string
}

// PartialDeleteError 部分记录在重试后仍未删除
type PartialDeleteError struct {
	PostID    string
	FailedIDs []string
	Cause     error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("delete metrics of post %s: %d record(s) failed [%s]: %v",
		e.PostID, len(e.FailedIDs), strings.Join(e.FailedIDs, ","), e.Cause)
}

func (e *PartialDeleteError) Unwrap() []error {
	return []error{ErrPartialDelete, e.Cause}
}

type analyticsStoreImpl struct {
	repo mongo.PostMetricsRepo
	now  func() time.Time
}

func NewAnalyticsStore(repo mongo.PostMetricsRepo) AnalyticsStore {
	return &analyticsStoreImpl{
		repo: repo,
		now:  time.Now,
	}
}

// Save 新建记录并返回记录 ID；同一 (post, platform) 已存在时返回 ErrMetricsExist
func (s *analyticsStoreImpl) Save(ctx context.Context, m *model.PostMetrics) (string, error) {
	if err := validateMetrics(m); err != nil {
		return "", err
	}
	doc := *m
	now := s.now()
	if doc.ID == "" {
		doc.ID = model.MetricsKey(doc.PostID, doc.Platform)
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.LastFetchedAt = now
	normalize(&doc)

	err := s.repo.Insert(ctx, &doc)
	metrics.ObserveStoreWrite("save", err)
	if err != nil {
		if mongoDB.IsDuplicateKeyError(err) {
			return "", ErrMetricsExist
		}
		return "", errors.Wrapf(err, "save metrics %s", doc.ID)
	}
	return doc.ID, nil
}

// Update 合并补丁后按合并结果重算参与率
func (s *analyticsStoreImpl) Update(ctx context.Context, id string, patch *model.MetricsPatch) (*model.PostMetrics, error) {
	if id == "" || patch == nil {
		return nil, ErrParamInvalid
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "load metrics %s", id)
	}
	if current == nil {
		return nil, ErrMetricsNotFound
	}

	patch.ApplyTo(current)
	now := s.now()
	current.UpdatedAt = now
	current.LastFetchedAt = now
	normalize(current)

	err = s.repo.UpdateFields(ctx, current)
	metrics.ObserveStoreWrite("update", err)
	if err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return nil, ErrMetricsNotFound
		}
		return nil, errors.Wrapf(err, "update metrics %s", id)
	}
	return current, nil
}

// GetByPostAndPlatform 存在多条历史记录时取 max(createdAt, updatedAt) 最新的一条
func (s *analyticsStoreImpl) GetByPostAndPlatform(ctx context.Context, postID string, platform model.Platform) *model.PostMetrics {
	list, err := s.repo.FindByPostAndPlatform(ctx, postID, platform)
	if err != nil {
		log.ErrorContext(ctx, "get metrics failed", "post_id", postID, "platform", platform.String(), "err", err)
		return nil
	}
	return pickCurrent(list)
}

// Upsert 以 <postId>_<platform> 为主键原子写入，随后清理该键下的历史重复记录
func (s *analyticsStoreImpl) Upsert(ctx context.Context, m *model.PostMetrics) (*model.PostMetrics, error) {
	if err := validateMetrics(m); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByPostAndPlatform(ctx, m.PostID, m.Platform)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup metrics %s/%s", m.PostID, m.Platform)
	}

	now := s.now()
	doc := *m
	doc.ID = model.MetricsKey(m.PostID, m.Platform)
	doc.CreatedAt = now
	if current := pickCurrent(existing); current != nil && !current.CreatedAt.IsZero() {
		doc.CreatedAt = current.CreatedAt
	}
	doc.UpdatedAt = now
	doc.LastFetchedAt = now
	normalize(&doc)

	created, err := s.repo.Upsert(ctx, &doc)
	metrics.ObserveStoreWrite("upsert", err)
	if err != nil {
		return nil, errors.Wrapf(err, "upsert metrics %s", doc.ID)
	}

	if hasLegacy(existing, doc.ID) {
		n, err := s.repo.DeleteDuplicates(ctx, doc.PostID, doc.Platform, doc.ID)
		if err != nil {
			log.WarnContext(ctx, "remove duplicate metrics failed", "id", doc.ID, "err", err)
		} else if n > 0 {
			log.InfoContext(ctx, "removed duplicate metrics", "id", doc.ID, "count", n)
		}
	}

	log.DebugContext(ctx, "metrics upserted", "id", doc.ID, "created", created)
	return &doc, nil
}

// DeleteByPost 逐条删除，失败项单独重试一次；仍有失败时返回 *PartialDeleteError 与已完成部分的报告
func (s *analyticsStoreImpl) DeleteByPost(ctx context.Context, postID string) (*DeleteReport, error) {
	if postID == "" {
		return nil, ErrParamInvalid
	}
	list, err := s.repo.Find(ctx, mongo.MetricsQuery{PostIDs: []string{postID}})
	if err != nil {
		return nil, errors.Wrapf(err, "list metrics of post %s", postID)
	}

	report := &DeleteReport{
		PostID:  postID,
		Deleted: make([]string, 0, len(list)),
		Failed:  make([]string, 0),
	}

	var pending []string
	for _, m := range list {
		if err = s.repo.DeleteByID(ctx, m.ID); err != nil {
			log.WarnContext(ctx, "delete metrics failed, will retry", "id", m.ID, "err", err)
			pending = append(pending, m.ID)
			continue
		}
		report.Deleted = append(report.Deleted, m.ID)
	}

	var lastErr error
	for _, id := range pending {
		if err = s.repo.DeleteByID(ctx, id); err != nil {
			lastErr = err
			report.Failed = append(report.Failed, id)
			continue
		}
		report.Deleted = append(report.Deleted, id)
	}

	if len(report.Failed) > 0 {
		metrics.ObserveStoreWrite("delete", lastErr)
		return report, &PartialDeleteError{PostID: postID, FailedIDs: report.Failed, Cause: lastErr}
	}
	metrics.ObserveStoreWrite("delete", nil)
	return report, nil
}

func (s *analyticsStoreImpl) ListByDateRange(ctx context.Context, from, to time.Time, limit int64) []*model.PostMetrics {
	return s.Query(ctx, mongo.MetricsQuery{From: from, To: to, Limit: limit})
}

func (s *analyticsStoreImpl) ListByUser(ctx context.Context, userID uint64, limit int64) []*model.PostMetrics {
	return s.Query(ctx, mongo.MetricsQuery{UserID: &userID, Limit: limit})
}

func (s *analyticsStoreImpl) ListByPlatform(ctx context.Context, platform model.Platform, limit int64) []*model.PostMetrics {
	return s.Query(ctx, mongo.MetricsQuery{Platform: platform, Limit: limit})
}

func (s *analyticsStoreImpl) ListByPost(ctx context.Context, postID string) []*model.PostMetrics {
	return s.Query(ctx, mongo.MetricsQuery{PostIDs: []string{postID}})
}

// Query 通用过滤查询，按 createdAt 倒序
func (s *analyticsStoreImpl) Query(ctx context.Context, q mongo.MetricsQuery) []*model.PostMetrics {
	list, err := s.repo.Find(ctx, q)
	if err != nil {
		log.ErrorContext(ctx, "list metrics failed", "err", err)
		return []*model.PostMetrics{}
	}
	return list
}

func validateMetrics(m *model.PostMetrics) error {
	if m == nil || m.PostID == "" {
		return ErrParamInvalid
	}
	if !m.Platform.Valid() {
		return ErrPlatformUnsupported
	}
	if m.Likes < 0 || m.Comments < 0 || m.Shares < 0 || m.Saves < 0 ||
		m.Reach < 0 || m.Impressions < 0 || m.Engagement < 0 {
		return ErrParamInvalid
	}
	return nil
}

// normalize 平台未直接给出互动量时按各项计数求和，并始终按当前值重算参与率
func normalize(m *model.PostMetrics) {
	if m.Engagement == 0 {
		m.Engagement = m.DerivedEngagement()
	}
	m.EngagementRate = model.EngagementRate(m.Engagement, m.Impressions)
}

// pickCurrent 取 max(createdAt, updatedAt) 最大者，相同时保留先出现的
func pickCurrent(list []*model.PostMetrics) *model.PostMetrics {
	var current *model.PostMetrics
	for _, m := range list {
		if current == nil || m.LastTouched().After(current.LastTouched()) {
			current = m
		}
	}
	return current
}

func hasLegacy(list []*model.PostMetrics, keepID string) bool {
	for _, m := range list {
		if m.ID != keepID {
			return true
		}
	}
	return false
}
