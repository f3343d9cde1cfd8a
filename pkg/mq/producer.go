// Package mq 基于 kafka-go 的生产者、消费组读取器与死信投递
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/gouwadan/pkg/logger"
)

var (
	errNoBrokers = errors.New("mq: at least one broker is required")
	errNoGroup   = errors.New("mq: consumer group id is required")
)

// KafkaConfig 生产者与消费者共用；SessionTimeout 单位秒，RetryBackoff 单位毫秒
type KafkaConfig struct {
	Brokers        []string
	GroupID        string
	SessionTimeout int
	MaxRetries     int
	RetryBackoff   int
}

// MessageWriter 抽取自 *kafka.Writer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer 以 JSON 编码发送事件，按 key 哈希分区
type KafkaProducer struct {
	writer MessageWriter
}

func newWriter(cfg KafkaConfig) *kafka.Writer {
	backoff := time.Duration(cfg.RetryBackoff) * time.Millisecond
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Gzip,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        backoff,
		WriteBackoffMax:        10 * backoff,
		AllowAutoTopicCreation: true,
	}
}

// NewProducer 不会立刻建连，首次写入时才连接 broker
func NewProducer(cfg KafkaConfig) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errNoBrokers
	}
	logger.Info(context.Background(), "kafka writer configured", "brokers", cfg.Brokers, "max_attempts", cfg.MaxRetries)
	return NewProducerWithWriter(newWriter(cfg)), nil
}

// NewProducerWithWriter 注入自定义 writer
func NewProducerWithWriter(w MessageWriter) *KafkaProducer {
	return &KafkaProducer{writer: w}
}

// SendMessage 写入一条消息，key 决定分区，同一会话的事件保持有序
func (p *KafkaProducer) SendMessage(ctx context.Context, topic, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("mq: encode %s payload: %w", topic, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		logger.Error(ctx, "kafka write failed", "topic", topic, "key", key, "error", err)
		return err
	}
	logger.Debug(ctx, "kafka write ok", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}

// Close 刷新缓冲并关闭 writer
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
