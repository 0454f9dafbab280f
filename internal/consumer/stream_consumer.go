package consumer

import (
	"context"
	"fmt"
	"time"

	rediscommon "github.com/santoshlite/unturtle/common/redis"
	"github.com/santoshlite/unturtle/internal/config"
	"github.com/santoshlite/unturtle/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamConsumer Redis Streams 关键点消费者
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	sink        SampleSink
	logger      *zap.Logger
	metrics     *Metrics
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	sink SampleSink,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		sink:        sink,
		logger:      logger,
		metrics:     NewMetrics(),
	}
}

// Metrics 消费统计
func (c *StreamConsumer) Metrics() *Metrics { return c.metrics }

// Start 启动消费者，阻塞到 ctx 取消
func (c *StreamConsumer) Start(ctx context.Context) error {
	stream := c.config.Stream.Landmarks
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, stream, c.config.Stream.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("consumer_group", c.config.Stream.ConsumerGroup),
		zap.String("consumer_name", c.config.Stream.ConsumerName),
		zap.String("stream", stream),
	)

	metricsCtx, metricsCancel := context.WithCancel(ctx)
	defer metricsCancel()
	go reportMetrics(metricsCtx, "redis_stream", c.metrics, metricsInterval, c.logger)

	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.consumeStream(ctx, stream); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("Failed to consume stream",
					zap.Error(err),
					zap.Duration("backoff", backoffDuration),
				)

				// 指数退避
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				backoffDuration = time.Second
			}
		}
	}
}

// consumeStream 读取并确认一批消息（监控循环只保留其中最新的一帧）
func (c *StreamConsumer) consumeStream(ctx context.Context, stream string) error {
	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		stream,
		c.config.Stream.ConsumerGroup,
		c.config.Stream.ConsumerName,
		c.config.Stream.BatchSize,
		c.config.Stream.Block,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		c.metrics.IncrementProcessed()
		if err := c.processMessage(msg); err != nil {
			c.logger.Error("Failed to process message",
				zap.String("stream_id", msg.ID),
				zap.Error(err),
			)
		}
		// 无法解析的消息同样确认，避免反复投递
		ids = append(ids, msg.ID)
	}

	if err := rediscommon.Ack(ctx, c.redisClient, stream, c.config.Stream.ConsumerGroup, ids...); err != nil {
		c.metrics.IncrementFailed("ack")
		return fmt.Errorf("failed to ack messages: %w", err)
	}
	return nil
}

// processMessage 处理单条消息
func (c *StreamConsumer) processMessage(msg rediscommon.StreamMessage) error {
	val, ok := msg.Values["data"]
	if !ok {
		c.metrics.IncrementFailed("parse")
		return fmt.Errorf("missing data field in message")
	}
	dataStr, ok := val.(string)
	if !ok {
		c.metrics.IncrementFailed("parse")
		return fmt.Errorf("invalid data format in message")
	}

	sample, err := models.DecodeLandmarkMessage([]byte(dataStr), time.Now())
	if err != nil {
		c.metrics.IncrementFailed("parse")
		return err
	}
	if !acceptDevice(c.config.DeviceID, sample.DeviceID) {
		c.metrics.IncrementSkipped()
		return nil
	}

	replaced := c.sink.Offer(sample)
	c.metrics.IncrementSucceeded(replaced)
	return nil
}
