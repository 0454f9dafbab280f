package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rediscommon "github.com/santoshlite/unturtle/common/redis"
	"github.com/santoshlite/unturtle/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Publisher MQTT 发布接口（*mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTSink 将报警发布到 {prefix}/{device_id}/alert
type MQTTSink struct {
	publisher Publisher
	prefix    string
	qos       byte
}

// NewMQTTSink 创建 MQTT 报警通道
func NewMQTTSink(publisher Publisher, prefix string, qos byte) *MQTTSink {
	return &MQTTSink{publisher: publisher, prefix: prefix, qos: qos}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Send 发布报警（非保留消息）
func (s *MQTTSink) Send(ctx context.Context, alert models.PostureAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	return s.publisher.Publish(AlertTopic(s.prefix, alert.DeviceID), s.qos, false, payload)
}

// AlertTopic 报警主题
func AlertTopic(prefix, deviceID string) string {
	return fmt.Sprintf("%s/%s/alert", prefix, deviceID)
}

// StreamSink 将报警写入 Redis Streams，供下游通知服务消费
type StreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamSink 创建 Redis Streams 报警通道
func NewStreamSink(client *redis.Client, stream string, maxLen int64) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Name() string { return "redis_stream" }

func (s *StreamSink) Send(ctx context.Context, alert models.PostureAlert) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, s.client, s.stream, s.maxLen, alert); err != nil {
		return fmt.Errorf("failed to publish alert to %s: %w", s.stream, err)
	}
	return nil
}

// WebhookSink 以 HTTP POST 推送报警
type WebhookSink struct {
	client *resty.Client
	url    string
}

// NewWebhookSink 创建 webhook 报警通道
func NewWebhookSink(url string, retries int) *WebhookSink {
	client := resty.New().
		SetRetryCount(retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookSink{client: client, url: url}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, alert models.PostureAlert) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(alert).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// LogSink 仅记录日志（未配置其它通道时使用）
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, alert models.PostureAlert) error {
	s.logger.Warn(alert.Title,
		zap.String("event_id", alert.EventID),
		zap.String("device_id", alert.DeviceID),
		zap.String("message", alert.Message),
		zap.Float64("deviation", alert.Deviation),
		zap.Time("triggered_at", alert.TriggeredAt),
	)
	return nil
}
