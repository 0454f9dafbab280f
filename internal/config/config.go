package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/santoshlite/unturtle/common/config"
	"github.com/santoshlite/unturtle/internal/posture"
)

// 关键点数据来源
const (
	SourceMQTT  = "mqtt"
	SourceRedis = "redis"
	SourceBoth  = "both"
)

// Config 坐姿监测服务配置
type Config struct {
	Redis config.RedisConfig
	MQTT  config.MQTTConfig

	DeviceID       string // 只处理该设备的数据，同时用于状态/报警主题
	AutoStart      bool   // 启动后直接进入校准，不等待开始命令
	LandmarkSource string // mqtt / redis / both

	Posture posture.Policy

	// MQTT 主题配置
	Topics struct {
		Prefix    string // 主题前缀，如 "unturtle"
		Landmarks string // 关键点订阅主题，如 "unturtle/+/landmarks"
		Command   string // 命令订阅主题，如 "unturtle/+/command"
	}

	// Redis Streams 配置
	Stream struct {
		Landmarks     string        // 关键点输入流
		ConsumerGroup string        // 消费者组
		ConsumerName  string        // 消费者名称
		BatchSize     int64         // 每次读取条数
		Block         time.Duration // 阻塞读取时长
		Alerts        string        // 报警输出流
		AlertMaxLen   int64         // 报警流近似最大长度
	}

	// Redis 缓存配置
	Cache struct {
		StatusKeyPrefix string // 状态缓存键前缀，如 "unturtle:device:"
		StatusSuffix    string // 状态缓存键后缀，如 ":status"
		StatusTTL       int    // 状态 TTL（秒），0 表示不过期
	}

	Alert struct {
		QueueSize      int
		Timeout        time.Duration // 单个通道投递超时
		WebhookURL     string        // 为空时不启用 webhook
		WebhookRetries int
	}

	HTTP struct {
		Port int // 0 表示不启动 HTTP 服务
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Redis.Addr = "localhost:6379"
	if err := cfg.Redis.LoadFromEnv("REDIS"); err != nil {
		return nil, err
	}

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "unturtle"
	cfg.MQTT.QoS = 1
	if err := cfg.MQTT.LoadFromEnv("MQTT"); err != nil {
		return nil, err
	}

	cfg.DeviceID = config.GetEnv("DEVICE_ID", "default")
	if cfg.AutoStart, err = config.GetEnvBool("AUTO_START", false); err != nil {
		return nil, err
	}
	cfg.LandmarkSource = strings.ToLower(config.GetEnv("LANDMARK_SOURCE", SourceMQTT))

	if err := loadPolicy(&cfg.Posture); err != nil {
		return nil, err
	}

	cfg.Topics.Prefix = config.GetEnv("MQTT_TOPIC_PREFIX", "unturtle")
	cfg.Topics.Landmarks = cfg.Topics.Prefix + "/+/landmarks"
	cfg.Topics.Command = cfg.Topics.Prefix + "/+/command"

	cfg.Stream.Landmarks = config.GetEnv("LANDMARK_STREAM", "posture:landmarks:stream")
	cfg.Stream.ConsumerGroup = config.GetEnv("CONSUMER_GROUP", "unturtle-group")
	cfg.Stream.ConsumerName = config.GetEnv("CONSUMER_NAME", "unturtle-1")
	cfg.Stream.BatchSize = 10
	cfg.Stream.Block = time.Second
	cfg.Stream.Alerts = config.GetEnv("ALERT_STREAM", "posture:alert:stream")
	cfg.Stream.AlertMaxLen = 1000

	cfg.Cache.StatusKeyPrefix = config.GetEnv("CACHE_STATUS_PREFIX", "unturtle:device:")
	cfg.Cache.StatusSuffix = ":status"
	if cfg.Cache.StatusTTL, err = config.GetEnvInt("CACHE_STATUS_TTL", 300); err != nil {
		return nil, err
	}

	cfg.Alert.QueueSize = 16
	if cfg.Alert.Timeout, err = config.GetEnvDuration("ALERT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	cfg.Alert.WebhookURL = config.GetEnv("ALERT_WEBHOOK_URL", "")
	if cfg.Alert.WebhookRetries, err = config.GetEnvInt("ALERT_WEBHOOK_RETRIES", 2); err != nil {
		return nil, err
	}

	if cfg.HTTP.Port, err = config.GetEnvInt("HTTP_PORT", 8080); err != nil {
		return nil, err
	}

	cfg.Log.Level = config.GetEnv("LOG_LEVEL", "info")
	cfg.Log.Format = config.GetEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func loadPolicy(p *posture.Policy) error {
	def := posture.DefaultPolicy()
	var err error

	if p.TickInterval, err = config.GetEnvDuration("POSTURE_TICK_INTERVAL", def.TickInterval); err != nil {
		return err
	}
	if p.CalibrationWindow, err = config.GetEnvDuration("POSTURE_CALIBRATION_WINDOW", def.CalibrationWindow); err != nil {
		return err
	}
	if p.TrackingWindow, err = config.GetEnvDuration("POSTURE_TRACKING_WINDOW", def.TrackingWindow); err != nil {
		return err
	}
	if p.CalibrationDelay, err = config.GetEnvDuration("POSTURE_CALIBRATION_DELAY", def.CalibrationDelay); err != nil {
		return err
	}
	if p.Deadband, err = config.GetEnvFloat("POSTURE_DEADBAND", def.Deadband); err != nil {
		return err
	}
	if p.Ceiling, err = config.GetEnvFloat("POSTURE_CEILING", def.Ceiling); err != nil {
		return err
	}
	if p.FailureThreshold, err = config.GetEnvInt("POSTURE_FAILURE_THRESHOLD", def.FailureThreshold); err != nil {
		return err
	}
	if p.AlertCooldown, err = config.GetEnvDuration("POSTURE_ALERT_COOLDOWN", def.AlertCooldown); err != nil {
		return err
	}

	name := config.GetEnv("POSTURE_CHANNEL", string(def.Channel))
	channel, ok := posture.ParseChannel(name)
	if !ok {
		return fmt.Errorf("invalid POSTURE_CHANNEL=%q", name)
	}
	p.Channel = channel

	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := c.Posture.Validate(); err != nil {
		return fmt.Errorf("invalid posture policy: %w", err)
	}

	if c.DeviceID == "" || strings.ContainsAny(c.DeviceID, "/+#") {
		return fmt.Errorf("invalid DEVICE_ID=%q", c.DeviceID)
	}

	switch c.LandmarkSource {
	case SourceMQTT, SourceRedis, SourceBoth:
	default:
		return fmt.Errorf("invalid LANDMARK_SOURCE=%q (want mqtt, redis or both)", c.LandmarkSource)
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT=%d", c.HTTP.Port)
	}
	if c.Alert.QueueSize < 1 {
		return fmt.Errorf("alert queue size must be at least 1, got %d", c.Alert.QueueSize)
	}
	if c.Alert.Timeout <= 0 {
		return fmt.Errorf("alert timeout must be positive, got %v", c.Alert.Timeout)
	}
	if c.Cache.StatusTTL < 0 {
		return fmt.Errorf("status cache TTL must not be negative, got %d", c.Cache.StatusTTL)
	}
	return nil
}

// UseMQTTLandmarks 是否从 MQTT 接收关键点
func (c *Config) UseMQTTLandmarks() bool {
	return c.LandmarkSource == SourceMQTT || c.LandmarkSource == SourceBoth
}

// UseStreamLandmarks 是否从 Redis Streams 接收关键点
func (c *Config) UseStreamLandmarks() bool {
	return c.LandmarkSource == SourceRedis || c.LandmarkSource == SourceBoth
}
