package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/gouwadan/internal/catalog/domain"
	"github.com/wyfcoding/gouwadan/pkg/logger"
	"github.com/wyfcoding/gouwadan/pkg/mq"
)

// Invalidator 失效商品缓存，由 CatalogApplicationService 实现
type Invalidator interface {
	InvalidateProduct(ctx context.Context, ids ...string) error
}

// Reader 消息读取者，由 mq.KafkaConsumer 实现
type Reader interface {
	ReadMessage(ctx context.Context) (*mq.Message, error)
}

// DeadLetter 死信发送者，由 mq.DeadLetterQueue 实现
type DeadLetter interface {
	Send(ctx context.Context, msg *mq.Message, reason string, err error) error
}

var errEmptyProduct = errors.New("product id is empty")

// StockChangedHandler 订阅库存变更事件并失效缓存中的商品
type StockChangedHandler struct {
	invalidator Invalidator
	dlq         DeadLetter
	minBackoff  time.Duration
	maxBackoff  time.Duration
}

// NewStockChangedHandler 创建库存事件处理器，dlq 可为 nil
func NewStockChangedHandler(invalidator Invalidator, dlq DeadLetter) *StockChangedHandler {
	return &StockChangedHandler{
		invalidator: invalidator,
		dlq:         dlq,
		minBackoff:  100 * time.Millisecond,
		maxBackoff:  5 * time.Second,
	}
}

// Handle 处理单条消息
func (h *StockChangedHandler) Handle(ctx context.Context, msg *mq.Message) error {
	switch msg.Topic {
	case domain.TopicProductStockChanged:
		var event domain.ProductStockChangedEvent
		if err := msg.UnmarshalPayload(&event); err != nil {
			return fmt.Errorf("decode stock event: %w", err)
		}
		if event.ProductID == "" {
			return errEmptyProduct
		}
		return h.invalidator.InvalidateProduct(ctx, event.ProductID)
	default:
		logger.Warn(ctx, "unknown catalog event topic", "topic", msg.Topic)
		return nil
	}
}

// Run 循环读取消息直到 ctx 结束，处理失败的消息转入死信队列。
// 读取失败按指数退避重试，只有 ctx 结束才返回。
func (h *StockChangedHandler) Run(ctx context.Context, reader Reader) error {
	backoff := h.minBackoff
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn(ctx, "failed to read catalog event, retrying", "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(2*backoff, h.maxBackoff)
			continue
		}
		backoff = h.minBackoff

		if err := h.Handle(ctx, msg); err != nil {
			logger.Error(ctx, "failed to handle catalog event",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
			if h.dlq != nil {
				if dlqErr := h.dlq.Send(ctx, msg, "handle_failed", err); dlqErr != nil {
					logger.Error(ctx, "failed to send dead letter", "topic", msg.Topic, "error", dlqErr)
				}
			}
		}
	}
}
