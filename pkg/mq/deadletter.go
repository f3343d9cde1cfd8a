package mq

import (
	"context"
	"time"
)

// deadLetter 死信消息体，保留原消息的定位信息
type deadLetter struct {
	Topic    string    `json:"original_topic"`
	Key      string    `json:"original_key"`
	Value    string    `json:"original_value"`
	Offset   int64     `json:"original_offset"`
	Produced time.Time `json:"original_time"`
	Reason   string    `json:"failure_reason"`
	Error    string    `json:"failure_error"`
	FailedAt time.Time `json:"failure_timestamp"`
}

// DeadLetterQueue 把处理失败的消息转投到单独主题
type DeadLetterQueue struct {
	producer *KafkaProducer
	topic    string
}

func NewDeadLetterQueue(producer *KafkaProducer, topic string) *DeadLetterQueue {
	return &DeadLetterQueue{producer: producer, topic: topic}
}

// Send 沿用原消息 key，cause 为 nil 时错误字段留空
func (q *DeadLetterQueue) Send(ctx context.Context, msg *Message, reason string, cause error) error {
	letter := deadLetter{
		Topic:    msg.Topic,
		Key:      msg.Key,
		Value:    string(msg.Value),
		Offset:   msg.Offset,
		Produced: msg.Time,
		Reason:   reason,
		FailedAt: time.Now(),
	}
	if cause != nil {
		letter.Error = cause.Error()
	}
	return q.producer.SendMessage(ctx, q.topic, msg.Key, letter)
}
