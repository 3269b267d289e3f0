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

type SocialPostRepo interface {
	GetPost(ctx context.Context, id string) (*model.SocialPost, error)
	ListByUser(ctx context.Context, userID uint64) ([]*model.SocialPost, error)
	ListLiveIDs(ctx context.Context, userID *uint64) ([]string, error)
	SetAnalyticsCache(ctx context.Context, postID string, metrics *model.PostMetrics) error
	ClearAnalyticsCache(ctx context.Context, postID string) error
	EnsureIndexes(ctx context.Context) error
}

type socialPostRepoImpl struct {
	col *mongo.Collection
}

func NewSocialPostRepo(db *mongo.Database) SocialPostRepo {
	return &socialPostRepoImpl{
		col: db.Collection("posts"),
	}
}

// GetPost 不存在时返回 nil, nil
func (s *socialPostRepoImpl) GetPost(ctx context.Context, id string) (*model.SocialPost, error) {
	var post model.SocialPost
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// ListByUser 按创建时间正序返回用户全部帖子
func (s *socialPostRepoImpl) ListByUser(ctx context.Context, userID uint64) ([]*model.SocialPost, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	posts := make([]*model.SocialPost, 0)
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListLiveIDs 已发布且至少在一个平台上有 ID 的帖子，userID 为空时不限用户
func (s *socialPostRepoImpl) ListLiveIDs(ctx context.Context, userID *uint64) ([]string, error) {
	filter := bson.M{
		"status":            model.PostStatusPublished,
		"platform_post_ids": bson.M{"$exists": true, "$ne": bson.M{}},
	}
	if userID != nil {
		filter["user_id"] = *userID
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// SetAnalyticsCache 回写帖子内嵌的 analytics.<platform> 缓存
func (s *socialPostRepoImpl) SetAnalyticsCache(ctx context.Context, postID string, metrics *model.PostMetrics) error {
	update := bson.M{"$set": bson.M{
		"analytics." + metrics.Platform.String(): metrics,
		"updated_at":                             time.Now(),
	}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": postID}, update)
	return err
}

func (s *socialPostRepoImpl) ClearAnalyticsCache(ctx context.Context, postID string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$unset": bson.M{"analytics": ""}})
	return err
}

func (s *socialPostRepoImpl) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	return err
}
