package kafka

import (
	"Beacon/internal/api/config"
	"time"

	"github.com/IBM/sarama"
)

// newSaramaConfig 统一初始化消费者组的 sarama.Config
func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Consumer.Return.Errors = true
	c.Consumer.Offsets.Initial = sarama.OffsetNewest
	c.Consumer.Offsets.AutoCommit.Enable = false

	if kafkaCfg.Consumer.SessionTimeout > 0 {
		c.Consumer.Group.Session.Timeout = seconds(kafkaCfg.Consumer.SessionTimeout)
	}
	if kafkaCfg.Consumer.HeartbeatInterval > 0 {
		c.Consumer.Group.Heartbeat.Interval = seconds(kafkaCfg.Consumer.HeartbeatInterval)
	}
	if kafkaCfg.Consumer.RebalanceTimeout > 0 {
		c.Consumer.Group.Rebalance.Timeout = seconds(kafkaCfg.Consumer.RebalanceTimeout)
	}
	// 一次刷新要串行调用多个平台接口，处理时间明显长于默认值
	c.Consumer.MaxProcessingTime = 30 * time.Second
	if kafkaCfg.Consumer.MaxProcessingTime > 0 {
		c.Consumer.MaxProcessingTime = seconds(kafkaCfg.Consumer.MaxProcessingTime)
	}

	return c
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
