package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santoshlite/unturtle/internal/config"
	"github.com/santoshlite/unturtle/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheManager Redis 状态缓存管理器
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (c *CacheManager) statusKey(deviceID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Cache.StatusKeyPrefix,
		deviceID,
		c.config.Cache.StatusSuffix,
	)
}

// UpdateStatusCache 写入设备最新会话状态（设置 TTL）
func (c *CacheManager) UpdateStatusCache(ctx context.Context, status models.Status) error {
	key := c.statusKey(status.DeviceID)

	jsonData, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	ttl := time.Duration(c.config.Cache.StatusTTL) * time.Second
	if err := c.redisClient.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set status cache: %w", err)
	}

	c.logger.Debug("Updated status cache",
		zap.String("device_id", status.DeviceID),
		zap.String("key", key),
		zap.String("state", status.State),
	)
	return nil
}

// GetStatus 读取设备缓存状态
func (c *CacheManager) GetStatus(ctx context.Context, deviceID string) (*models.Status, error) {
	val, err := c.redisClient.Get(ctx, c.statusKey(deviceID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("status not found for device: %s", deviceID)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var status models.Status
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}
