package messaging

import (
	"context"

	"github.com/wyfcoding/gouwadan/internal/cart/domain"
)

// Sender 消息发送者，由 mq.KafkaProducer 实现
type Sender interface {
	SendMessage(ctx context.Context, topic string, key string, value any) error
}

// kafkaPublisher 以会话 id 为 key 投递，同一会话的事件保持分区内有序
type kafkaPublisher struct {
	sender      Sender
	topicPrefix string
}

// NewKafkaPublisher 创建 Kafka 事件发布者，topicPrefix 可为空
func NewKafkaPublisher(sender Sender, topicPrefix string) domain.EventPublisher {
	return &kafkaPublisher{sender: sender, topicPrefix: topicPrefix}
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.sender.SendMessage(ctx, p.topicPrefix+topic, key, event)
}

// NoopPublisher 未配置 Kafka 时使用
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) error { return nil }
