package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/gouwadan/pkg/logger"
)

const maxFetchBytes = 10 << 20

// Message 与 kafka-go 解耦的消息视图
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Value     []byte
	Time      time.Time
}

// UnmarshalPayload 把 Value 按 JSON 解码到 dest
func (m *Message) UnmarshalPayload(dest any) error {
	return json.Unmarshal(m.Value, dest)
}

// KafkaConsumer 消费组读取器，可同时订阅多个主题
type KafkaConsumer struct {
	reader *kafka.Reader
}

// NewConsumer 从最新偏移开始消费，每秒提交一次偏移
func NewConsumer(cfg KafkaConfig, topics ...string) (*KafkaConsumer, error) {
	switch {
	case len(cfg.Brokers) == 0:
		return nil, errNoBrokers
	case cfg.GroupID == "":
		return nil, errNoGroup
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    topics,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
		SessionTimeout: time.Duration(cfg.SessionTimeout) * time.Second,
		MaxBytes:       maxFetchBytes,
	})
	logger.Info(context.Background(), "kafka reader joined group", "group_id", cfg.GroupID, "topics", topics)
	return &KafkaConsumer{reader: r}, nil
}

// ReadMessage 阻塞直到拿到消息或 ctx 结束
func (c *KafkaConsumer) ReadMessage(ctx context.Context) (*Message, error) {
	km, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return &Message{
		Topic:     km.Topic,
		Partition: km.Partition,
		Offset:    km.Offset,
		Key:       string(km.Key),
		Value:     km.Value,
		Time:      km.Time,
	}, nil
}

// Close 离开消费组
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
