package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis:6380")
	t.Setenv("TEST_REDIS_PASSWORD", "secret")
	t.Setenv("TEST_REDIS_DB", "3")

	cfg := RedisConfig{Addr: "localhost:6379"}
	require.NoError(t, cfg.LoadFromEnv("TEST_REDIS"))

	assert.Equal(t, "redis:6380", cfg.Addr)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 3, cfg.DB)
}

func TestMQTTConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("TEST_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("TEST_MQTT_CLIENT_ID", "unturtle-test")
	t.Setenv("TEST_MQTT_QOS", "2")

	cfg := MQTTConfig{QoS: 1}
	require.NoError(t, cfg.LoadFromEnv("TEST_MQTT"))

	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, "unturtle-test", cfg.ClientID)
	assert.Equal(t, "", cfg.Username)
	assert.Equal(t, byte(2), cfg.QoS)
}

func TestRedisConfig_LoadFromEnv_KeepsDefaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379", DB: 1}
	require.NoError(t, cfg.LoadFromEnv("TEST_REDIS_UNSET"))

	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, 1, cfg.DB)
}

func TestRedisConfig_LoadFromEnv_InvalidDB(t *testing.T) {
	t.Setenv("TEST_REDIS_DB", "zero")

	cfg := RedisConfig{DB: 0}
	err := cfg.LoadFromEnv("TEST_REDIS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_REDIS_DB")

	t.Setenv("TEST_REDIS_DB", "-1")
	assert.Error(t, cfg.LoadFromEnv("TEST_REDIS"))
}

func TestMQTTConfig_LoadFromEnv_InvalidQoS(t *testing.T) {
	cfg := MQTTConfig{QoS: 1}

	t.Setenv("TEST_MQTT_QOS", "7")
	err := cfg.LoadFromEnv("TEST_MQTT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_MQTT_QOS")

	t.Setenv("TEST_MQTT_QOS", "high")
	assert.Error(t, cfg.LoadFromEnv("TEST_MQTT"))
	assert.Equal(t, byte(1), cfg.QoS)
}

func TestGetEnvHelpers(t *testing.T) {
	assert.Equal(t, "default-value", GetEnv("UNTURTLE_TEST_UNSET", "default-value"))

	t.Setenv("UNTURTLE_TEST_INT", "42")
	t.Setenv("UNTURTLE_TEST_FLOAT", "0.25")
	t.Setenv("UNTURTLE_TEST_BOOL", "true")
	t.Setenv("UNTURTLE_TEST_DURATION", "150ms")

	i, err := GetEnvInt("UNTURTLE_TEST_INT", 1)
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	f, err := GetEnvFloat("UNTURTLE_TEST_FLOAT", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	b, err := GetEnvBool("UNTURTLE_TEST_BOOL", false)
	require.NoError(t, err)
	assert.True(t, b)

	d, err := GetEnvDuration("UNTURTLE_TEST_DURATION", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, d)
}

func TestGetEnvHelpers_InvalidValues(t *testing.T) {
	t.Setenv("UNTURTLE_TEST_INT", "forty-two")
	t.Setenv("UNTURTLE_TEST_DURATION", "soon")

	_, err := GetEnvInt("UNTURTLE_TEST_INT", 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "UNTURTLE_TEST_INT")

	_, err = GetEnvDuration("UNTURTLE_TEST_DURATION", time.Second)
	assert.Error(t, err)
}
