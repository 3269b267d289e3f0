package kafka

import (
	"Beacon/internal/pkg/consts"
	"Beacon/internal/pkg/logger"
	"Beacon/internal/service"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PostEvent 内容服务推送的帖子生命周期事件
type PostEvent struct {
	Type   string `json:"type"`
	PostID string `json:"postId"`
	UserID uint64 `json:"userId"`
}

// PostEventUpdater 消费者只依赖刷新与级联删除
type PostEventUpdater interface {
	RefreshPost(ctx context.Context, postID string) (*service.RefreshResult, error)
	RemovePost(ctx context.Context, postID string) (*service.DeleteReport, error)
}

type PostEventHandler struct {
	updater PostEventUpdater
}

func NewPostEventHandler(updater PostEventUpdater) *PostEventHandler {
	return &PostEventHandler{updater: updater}
}

func (s *PostEventHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("post event consumer setup")
	return nil
}

func (s *PostEventHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("post event consumer cleanup")
	return nil
}

func (s *PostEventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-post-event consume claim", "partition", claim.Partition())
	if err := pullMessageBatch(session, claim, s.logic); err != nil {
		log.Error("topic-post-event process batch error", "err", err)
		return err
	}
	log.Info("topic-post-event consume claim end")
	return nil
}

// logic 返回 nil 表示消息已处理或无需重试
func (s *PostEventHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = context.WithValue(ctx, logger.TraceIDKey, "kafka-"+uuid.NewString())

	var event PostEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.WarnContext(ctx, "skip malformed post event", "offset", msg.Offset, "err", err)
		return nil
	}
	if event.PostID == "" {
		log.WarnContext(ctx, "skip post event without post id", "offset", msg.Offset)
		return nil
	}

	switch event.Type {
	case consts.PostEventPublished:
		res, err := s.updater.RefreshPost(ctx, event.PostID)
		if errors.Is(err, service.ErrPostNotFound) {
			log.WarnContext(ctx, "published post not found", "post_id", event.PostID)
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "refresh post %s", event.PostID)
		}
		log.InfoContext(ctx, "post analytics refreshed",
			"post_id", event.PostID, "updated", len(res.Updated), "skipped", len(res.Skipped))
	case consts.PostEventDeleted:
		report, err := s.updater.RemovePost(ctx, event.PostID)
		if err != nil {
			return errors.Wrapf(err, "remove metrics of post %s", event.PostID)
		}
		log.InfoContext(ctx, "post analytics removed", "post_id", event.PostID, "deleted", len(report.Deleted))
	default:
		log.DebugContext(ctx, "ignore post event", "type", event.Type, "post_id", event.PostID)
	}
	return nil
}
