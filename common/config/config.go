package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// LoadFromEnv 从环境变量加载Redis配置（未设置的项保留原值）
func (c *RedisConfig) LoadFromEnv(prefix string) error {
	c.Addr = GetEnv(prefix+"_ADDR", c.Addr)
	c.Password = GetEnv(prefix+"_PASSWORD", c.Password)

	db, err := GetEnvInt(prefix+"_DB", c.DB)
	if err != nil {
		return err
	}
	if db < 0 {
		return fmt.Errorf("invalid %s_DB=%d", prefix, db)
	}
	c.DB = db
	return nil
}

// LoadFromEnv 从环境变量加载MQTT配置（未设置的项保留原值）
func (c *MQTTConfig) LoadFromEnv(prefix string) error {
	c.Broker = GetEnv(prefix+"_BROKER", c.Broker)
	c.ClientID = GetEnv(prefix+"_CLIENT_ID", c.ClientID)
	c.Username = GetEnv(prefix+"_USERNAME", c.Username)
	c.Password = GetEnv(prefix+"_PASSWORD", c.Password)

	qos, err := GetEnvInt(prefix+"_QOS", int(c.QoS))
	if err != nil {
		return err
	}
	if qos < 0 || qos > 2 {
		return fmt.Errorf("invalid %s_QOS=%d (want 0, 1 or 2)", prefix, qos)
	}
	c.QoS = byte(qos)
	return nil
}

// GetEnv 读取环境变量，未设置时返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt 读取整数环境变量
func GetEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
	return v, nil
}

// GetEnvFloat 读取浮点环境变量
func GetEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
	return v, nil
}

// GetEnvBool 读取布尔环境变量（"true"/"1"/"yes"...）
func GetEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
	return v, nil
}

// GetEnvDuration 读取时长环境变量，格式同 time.ParseDuration（如 "100ms", "3s"）
func GetEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
	return v, nil
}
