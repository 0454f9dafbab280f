package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/santoshlite/unturtle/common/config"

	"github.com/go-redis/redis/v8"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 3 * time.Second
	pingTimeout  = 3 * time.Second
)

// NewRedisClient 创建Redis客户端（不立即连接，调用 Ping 检查可用性）
// 阻塞读（XREADGROUP BLOCK）由 go-redis 按 Block 时长自动放宽读超时
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		WriteTimeout: writeTimeout,
	})
}

// Ping 在超时内检查Redis是否可达，错误中带上地址
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", client.Options().Addr, err)
	}
	return nil
}

// Close 关闭Redis连接（nil 安全）
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
