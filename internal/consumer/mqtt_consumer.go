package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqttcommon "github.com/santoshlite/unturtle/common/mqtt"
	"github.com/santoshlite/unturtle/internal/config"
	"github.com/santoshlite/unturtle/internal/models"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅接口（*mqttcommon.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// CommandMessage 命令主题消息格式
type CommandMessage struct {
	Command string `json:"command"` // start / recalibrate / stop
}

// MQTTConsumer MQTT 关键点与命令消费者
type MQTTConsumer struct {
	config         *config.Config
	mqttClient     Subscriber
	sink           SampleSink
	controller     Controller
	commandTimeout time.Duration
	logger         *zap.Logger
	metrics        *Metrics
}

// NewMQTTConsumer 创建 MQTT 消费者
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient Subscriber,
	sink SampleSink,
	controller Controller,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:         cfg,
		mqttClient:     mqttClient,
		sink:           sink,
		controller:     controller,
		commandTimeout: 5 * time.Second,
		logger:         logger,
		metrics:        NewMetrics(),
	}
}

// Metrics 消费统计
func (c *MQTTConsumer) Metrics() *Metrics { return c.metrics }

func (c *MQTTConsumer) topics() []string {
	var topics []string
	if c.config.UseMQTTLandmarks() {
		topics = append(topics, c.config.Topics.Landmarks)
	}
	return append(topics, c.config.Topics.Command)
}

// Start 订阅主题并阻塞到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	qos := c.config.MQTT.QoS

	if c.config.UseMQTTLandmarks() {
		// 关键点帧只需要最新值，QoS 0 即可
		if err := c.mqttClient.Subscribe(c.config.Topics.Landmarks, 0, c.handleLandmarks); err != nil {
			return fmt.Errorf("failed to subscribe to landmarks topic: %w", err)
		}
	}
	if err := c.mqttClient.Subscribe(c.config.Topics.Command, qos, c.handleCommand); err != nil {
		return fmt.Errorf("failed to subscribe to command topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.Strings("topics", c.topics()),
	)

	metricsCtx, metricsCancel := context.WithCancel(ctx)
	defer metricsCancel()
	go reportMetrics(metricsCtx, "mqtt", c.metrics, metricsInterval, c.logger)

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() error {
	if err := c.mqttClient.Unsubscribe(c.topics()...); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

// deviceFromTopic 主题格式: {prefix}/{device_id}/{kind}
func deviceFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[len(parts)-2] == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return parts[len(parts)-2], nil
}

// handleLandmarks 处理关键点帧
func (c *MQTTConsumer) handleLandmarks(topic string, payload []byte) error {
	c.metrics.IncrementProcessed()

	deviceID, err := deviceFromTopic(topic)
	if err != nil {
		c.metrics.IncrementFailed("parse")
		return err
	}
	if !acceptDevice(c.config.DeviceID, deviceID) {
		c.metrics.IncrementSkipped()
		return nil
	}

	sample, err := models.DecodeLandmarkMessage(payload, time.Now())
	if err != nil {
		c.metrics.IncrementFailed("parse")
		c.logger.Warn("Failed to decode landmark frame",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return err
	}
	if sample.DeviceID == "" {
		sample.DeviceID = deviceID
	}

	replaced := c.sink.Offer(sample)
	c.metrics.IncrementSucceeded(replaced)
	return nil
}

// handleCommand 处理会话命令
func (c *MQTTConsumer) handleCommand(topic string, payload []byte) error {
	deviceID, err := deviceFromTopic(topic)
	if err != nil {
		return err
	}
	if !acceptDevice(c.config.DeviceID, deviceID) {
		return nil
	}

	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("Failed to unmarshal command",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.commandTimeout)
	defer cancel()

	status, err := ExecuteCommand(ctx, c.controller, msg.Command)
	if err != nil {
		c.logger.Warn("Session command failed",
			zap.String("device_id", deviceID),
			zap.String("command", msg.Command),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("Session command applied",
		zap.String("device_id", deviceID),
		zap.String("command", msg.Command),
		zap.String("state", status.State),
	)
	return nil
}

// ExecuteCommand 按名称执行会话命令
func ExecuteCommand(ctx context.Context, controller Controller, command string) (models.Status, error) {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "start":
		return controller.Start(ctx)
	case "recalibrate":
		return controller.Recalibrate(ctx)
	case "stop":
		return controller.Stop(ctx)
	default:
		return models.Status{}, fmt.Errorf("unknown command: %q", command)
	}
}
