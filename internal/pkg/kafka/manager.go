package kafka

import (
	"Beacon/internal/api/config"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理 Kafka 消费者
type ConsumerManager struct {
	postEventConsumer sarama.ConsumerGroup
	postEventHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 未开启 Kafka 时返回 nil
func NewConsumerManager(cfg *config.Config, updater PostEventUpdater) (*ConsumerManager, error) {
	if !cfg.Kafka.Enable {
		return nil, nil
	}
	saramaCfg := newSaramaConfig(cfg.Kafka)

	postEventConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.PostEvent.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		postEventConsumer: postEventConsumer,
		postEventHandler:  NewPostEventHandler(updater),
	}, nil
}

// Start 启动消费者，阻塞到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	if m == nil {
		<-ctx.Done()
		return nil
	}

	go func() {
		for err := range m.postEventConsumer.Errors() {
			log.Error("post event consumer error", "err", err)
		}
	}()

	go func() {
		topic := cfg.PostEvent.Topic
		log.Info("Post event consumer started", "topic", topic)
		for {
			if err := m.postEventConsumer.Consume(ctx, []string{topic}, m.postEventHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.postEventConsumer.Close(); err != nil {
		log.Error("Failed to close post event consumer", "err", err)
	}

	return nil
}
