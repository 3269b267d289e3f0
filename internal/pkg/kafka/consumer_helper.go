package kafka

import (
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
)

const (
	batchSize    = 16
	batchTimeout = 1 * time.Second

	maxAttempts      = 5
	initialBackoff   = 100 * time.Millisecond
	maxRetryInterval = 5 * time.Second
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 拉取一批消息并执行业务逻辑
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				if len(batch) > 0 {
					processBatch(session, batch, logic)
				}
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 按分区顺序逐条处理，同一帖子的发布与删除事件不会乱序；
// 单条失败按指数退避重试，超过次数后丢弃。会话结束时只提交已处理的位点
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic LogicFunc) {
	var last *sarama.ConsumerMessage
	for _, msg := range messages {
		if !handleWithRetry(session.Context(), msg, logic) {
			break
		}
		last = msg
	}

	if last != nil {
		session.MarkMessage(last, "")
	}
}

// handleWithRetry 返回 false 表示会话已结束，消息未处理完
func handleWithRetry(ctx context.Context, m *sarama.ConsumerMessage, logic LogicFunc) bool {
	retryInterval := initialBackoff

	for attempt := 1; ; attempt++ {
		err := logic(ctx, m)
		if err == nil {
			return true
		}
		if attempt >= maxAttempts {
			log.Error("drop message after retries",
				"topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "err", err)
			return true
		}
		log.Warn("process message error", "attempt", attempt, "err", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(retryInterval):
		}

		retryInterval *= 2
		if retryInterval > maxRetryInterval {
			retryInterval = maxRetryInterval
		}
	}
}
