package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqttcommon "github.com/santoshlite/unturtle/common/mqtt"
	rediscommon "github.com/santoshlite/unturtle/common/redis"
	"github.com/santoshlite/unturtle/internal/config"
	"github.com/santoshlite/unturtle/internal/consumer"
	"github.com/santoshlite/unturtle/internal/notifier"
	"github.com/santoshlite/unturtle/internal/posture"
	"github.com/santoshlite/unturtle/internal/web"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// mqttBus MQTT 发布与订阅（*mqttcommon.Client 实现）
type mqttBus interface {
	notifier.Publisher
	consumer.Subscriber
}

// connectionChecker 能报告连接状态的 MQTT 客户端
type connectionChecker interface {
	IsConnected() bool
}

var errMQTTDisconnected = errors.New("mqtt not connected")

// PostureService 坐姿监测服务
type PostureService struct {
	config *config.Config
	logger *zap.Logger

	redis      *redis.Client
	mqttClient mqttBus

	monitor         *posture.Monitor
	dispatcher      *notifier.Dispatcher
	statusPublisher *notifier.StatusPublisher
	cache           *consumer.CacheManager
	mqttConsumer    *consumer.MQTTConsumer
	streamConsumer  *consumer.StreamConsumer // LANDMARK_SOURCE 含 redis 时启用
	server          *web.Server              // HTTP_PORT=0 时为 nil

	wg sync.WaitGroup
}

// NewPostureService 连接 Redis 与 MQTT 并创建服务
func NewPostureService(cfg *config.Config, logger *zap.Logger) (*PostureService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// 初始化Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		rediscommon.Close(redisClient)
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	return newPostureService(cfg, logger, redisClient, mqttClient), nil
}

func newPostureService(cfg *config.Config, logger *zap.Logger, redisClient *redis.Client, mqttClient mqttBus) *PostureService {
	qos := cfg.MQTT.QoS

	// 报警通道
	sinks := []notifier.Sink{
		notifier.NewLogSink(logger),
		notifier.NewMQTTSink(mqttClient, cfg.Topics.Prefix, qos),
		notifier.NewStreamSink(redisClient, cfg.Stream.Alerts, cfg.Stream.AlertMaxLen),
	}
	if cfg.Alert.WebhookURL != "" {
		sinks = append(sinks, notifier.NewWebhookSink(cfg.Alert.WebhookURL, cfg.Alert.WebhookRetries))
	}
	dispatcher := notifier.NewDispatcher(cfg.Alert.QueueSize, cfg.Alert.Timeout, logger, sinks...)

	cache := consumer.NewCacheManager(cfg, redisClient, logger)
	statusPublisher := notifier.NewStatusPublisher(mqttClient, cache, cfg.Topics.Prefix, qos, logger)

	listener := &sessionListener{
		publisher:  statusPublisher,
		dispatcher: dispatcher,
		logger:     logger,
	}
	monitor := posture.NewMonitor(cfg.Posture, cfg.DeviceID, listener, logger)

	s := &PostureService{
		config:          cfg,
		logger:          logger,
		redis:           redisClient,
		mqttClient:      mqttClient,
		monitor:         monitor,
		dispatcher:      dispatcher,
		statusPublisher: statusPublisher,
		cache:           cache,
		mqttConsumer:    consumer.NewMQTTConsumer(cfg, mqttClient, monitor, monitor, logger),
	}

	if cfg.UseStreamLandmarks() {
		s.streamConsumer = consumer.NewStreamConsumer(cfg, redisClient, monitor, logger)
	}
	if cfg.HTTP.Port > 0 {
		s.server = web.NewServer(cfg.HTTP.Port, monitor, logger)
		s.server.AddHealthCheck("redis", func(ctx context.Context) error {
			return rediscommon.Ping(ctx, redisClient)
		})
		if checker, ok := mqttClient.(connectionChecker); ok {
			s.server.AddHealthCheck("mqtt", func(ctx context.Context) error {
				if !checker.IsConnected() {
					return errMQTTDisconnected
				}
				return nil
			})
		}
		listener.broadcast = s.server.BroadcastStatus
	}

	return s
}

// Monitor 监控循环
func (s *PostureService) Monitor() *posture.Monitor { return s.monitor }

// Start 启动所有组件并阻塞到 ctx 取消或某个组件出错
func (s *PostureService) Start(ctx context.Context) error {
	s.logger.Info("Starting posture service components",
		zap.String("device_id", s.config.DeviceID),
		zap.String("landmark_source", s.config.LandmarkSource),
		zap.Duration("tick_interval", s.config.Posture.TickInterval),
		zap.String("channel", string(s.config.Posture.Channel)),
	)

	// 组件使用独立的 ctx：外部取消后还要先停止会话、发布最终状态
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 4)
	s.spawn(func() error { return s.monitor.Run(runCtx) }, errCh)
	s.spawn(func() error { s.dispatcher.Run(runCtx); return nil }, errCh)
	s.spawn(func() error { s.statusPublisher.Run(runCtx); return nil }, errCh)
	s.spawn(func() error {
		if err := s.mqttConsumer.Start(runCtx); err != nil {
			return fmt.Errorf("failed to start MQTT consumer: %w", err)
		}
		return nil
	}, errCh)
	if s.streamConsumer != nil {
		s.spawn(func() error {
			if err := s.streamConsumer.Start(runCtx); err != nil {
				return fmt.Errorf("failed to start stream consumer: %w", err)
			}
			return nil
		}, errCh)
	}
	if s.server != nil {
		s.spawn(func() error { return s.server.Run(runCtx) }, errCh)
	}

	if s.config.AutoStart {
		startCtx, startCancel := context.WithTimeout(ctx, shutdownTimeout)
		status, err := s.monitor.Start(startCtx)
		startCancel()
		if err != nil {
			cancel()
			s.wg.Wait()
			return fmt.Errorf("failed to auto-start session: %w", err)
		}
		s.logger.Info("Session auto-started", zap.String("state", status.State))
	}

	s.logger.Info("Posture service started successfully")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		s.logger.Error("Posture service component failed", zap.Error(runErr))
	}

	// 先停止会话，让空闲状态经状态发布器发出
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if _, err := s.monitor.Stop(stopCtx); err != nil && runErr == nil {
		s.logger.Warn("Failed to stop session", zap.Error(err))
	}
	stopCancel()

	cancel()
	s.wg.Wait()
	return runErr
}

func (s *PostureService) spawn(fn func() error, errCh chan<- error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
}

// Stop 释放外部连接
func (s *PostureService) Stop() {
	s.logger.Info("Stopping posture service")

	if s.mqttConsumer != nil {
		if err := s.mqttConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping MQTT consumer", zap.Error(err))
		}
	}

	if client, ok := s.mqttClient.(*mqttcommon.Client); ok && client != nil {
		client.Disconnect()
	}

	if s.redis != nil {
		if err := rediscommon.Close(s.redis); err != nil {
			s.logger.Error("Error closing redis", zap.Error(err))
		}
	}

	s.logger.Info("Posture service stopped")
}
