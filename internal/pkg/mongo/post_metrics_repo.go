package mongo

import (
	"Beacon/internal/model"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const postMetricsCollection = "post_metrics"

// MetricsQuery 列表查询条件，零值字段不参与过滤
type MetricsQuery struct {
	UserID   *uint64
	Platform model.Platform
	PostIDs  []string
	From     time.Time
	To       time.Time
	Limit    int64
}

type PostMetricsRepo interface {
	Insert(ctx context.Context, m *model.PostMetrics) error
	Upsert(ctx context.Context, m *model.PostMetrics) (bool, error)
	UpdateFields(ctx context.Context, m *model.PostMetrics) error
	GetByID(ctx context.Context, id string) (*model.PostMetrics, error)
	FindByPostAndPlatform(ctx context.Context, postID string, platform model.Platform) ([]*model.PostMetrics, error)
	Find(ctx context.Context, q MetricsQuery) ([]*model.PostMetrics, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteDuplicates(ctx context.Context, postID string, platform model.Platform, keepID string) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type postMetricsRepoImpl struct {
	col *mongo.Collection
}

func NewPostMetricsRepo(db *mongo.Database) PostMetricsRepo {
	return &postMetricsRepoImpl{
		col: db.Collection(postMetricsCollection),
	}
}

// Insert 新建记录，主键冲突时返回驱动错误
func (s *postMetricsRepoImpl) Insert(ctx context.Context, m *model.PostMetrics) error {
	_, err := s.col.InsertOne(ctx, m)
	return err
}

// Upsert 以确定性主键原子写入；created_at 只在首次插入时落库。返回是否为新建
func (s *postMetricsRepoImpl) Upsert(ctx context.Context, m *model.PostMetrics) (bool, error) {
	filter := bson.M{"_id": m.ID}
	update := bson.M{
		"$set":         mutableFields(m),
		"$setOnInsert": bson.M{"created_at": m.CreatedAt},
	}
	opts := options.Update().SetUpsert(true)

	res, err := s.col.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// 两个 upsert 同时插入同一主键，败者重试一次即落到更新分支
		res, err = s.col.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

// UpdateFields 覆盖可变字段，记录不存在时返回 mongo.ErrNoDocuments
func (s *postMetricsRepoImpl) UpdateFields(ctx context.Context, m *model.PostMetrics) error {
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": m.ID}, bson.M{"$set": mutableFields(m)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *postMetricsRepoImpl) GetByID(ctx context.Context, id string) (*model.PostMetrics, error) {
	var m model.PostMetrics
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// FindByPostAndPlatform 返回该键下的全部记录（兼容历史上自动生成 ID 的重复记录）
func (s *postMetricsRepoImpl) FindByPostAndPlatform(ctx context.Context, postID string, platform model.Platform) ([]*model.PostMetrics, error) {
	filter := bson.M{"post_id": postID, "platform": platform}
	return s.find(ctx, filter, options.Find())
}

func (s *postMetricsRepoImpl) Find(ctx context.Context, q MetricsQuery) ([]*model.PostMetrics, error) {
	filter := bson.M{}
	if q.UserID != nil {
		filter["user_id"] = *q.UserID
	}
	if q.Platform != "" {
		filter["platform"] = q.Platform
	}
	if len(q.PostIDs) > 0 {
		filter["post_id"] = bson.M{"$in": q.PostIDs}
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		rng := bson.M{}
		if !q.From.IsZero() {
			rng["$gte"] = q.From
		}
		if !q.To.IsZero() {
			rng["$lte"] = q.To
		}
		filter["created_at"] = rng
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return s.find(ctx, filter, opts)
}

func (s *postMetricsRepoImpl) DeleteByID(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteDuplicates 清理同一 (post, platform) 下除 keepID 外的历史记录
func (s *postMetricsRepoImpl) DeleteDuplicates(ctx context.Context, postID string, platform model.Platform, keepID string) (int64, error) {
	filter := bson.M{
		"post_id":  postID,
		"platform": platform,
		"_id":      bson.M{"$ne": keepID},
	}
	res, err := s.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *postMetricsRepoImpl) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "platform", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "platform", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}

func (s *postMetricsRepoImpl) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.PostMetrics, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	list := make([]*model.PostMetrics, 0)
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func mutableFields(m *model.PostMetrics) bson.M {
	return bson.M{
		"post_id":          m.PostID,
		"user_id":          m.UserID,
		"platform":         m.Platform,
		"platform_post_id": m.PlatformPostID,
		"likes":            m.Likes,
		"comments":         m.Comments,
		"shares":           m.Shares,
		"saves":            m.Saves,
		"reach":            m.Reach,
		"impressions":      m.Impressions,
		"engagement":       m.Engagement,
		"engagement_rate":  m.EngagementRate,
		"updated_at":       m.UpdatedAt,
		"last_fetched_at":  m.LastFetchedAt,
	}
}
