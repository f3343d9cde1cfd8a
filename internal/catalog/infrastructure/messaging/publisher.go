package messaging

import (
	"context"

	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
)

// Sender 消息发送者，由 mq.KafkaProducer 实现
type Sender interface {
	SendMessage(ctx context.Context, topic string, key string, value any) error
}

type kafkaPublisher struct {
	sender Sender
}

// NewKafkaPublisher 创建商品目录事件发布者，key 为商品或店铺 id
func NewKafkaPublisher(sender Sender) domain.EventPublisher {
	return &kafkaPublisher{sender: sender}
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.sender.SendMessage(ctx, topic, key, event)
}

// NoopPublisher 未配置 Kafka 时使用
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) error { return nil }
