package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santoshlite/unturtle/internal/models"
	"github.com/santoshlite/unturtle/internal/posture"

	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// StatusCache 状态缓存接口（Redis 实现见 consumer.CacheManager）
type StatusCache interface {
	UpdateStatusCache(ctx context.Context, status models.Status) error
}

// StatusPublisher 状态外发
//
// 只保留最新状态：发布较慢时中间状态会被跳过，订阅方总能拿到最终状态。
type StatusPublisher struct {
	slot      *posture.LatestSlot[models.Status]
	publisher Publisher // 可为 nil
	cache     StatusCache
	prefix    string
	qos       byte
	logger    *zap.Logger
}

// NewStatusPublisher 创建状态发布器，publisher/cache 均可为 nil
func NewStatusPublisher(publisher Publisher, cache StatusCache, prefix string, qos byte, logger *zap.Logger) *StatusPublisher {
	return &StatusPublisher{
		slot:      posture.NewLatestSlot[models.Status](),
		publisher: publisher,
		cache:     cache,
		prefix:    prefix,
		qos:       qos,
		logger:    logger,
	}
}

// StatusTopic 状态主题（retained）
func StatusTopic(prefix, deviceID string) string {
	return fmt.Sprintf("%s/%s/status", prefix, deviceID)
}

// Publish 投递最新状态（不阻塞）
func (p *StatusPublisher) Publish(status models.Status) {
	p.slot.Offer(status)
}

// Run 发布循环，直到 ctx 取消；退出前发布尚未处理的最后一个状态
// 每次发布使用独立的超时 ctx，ctx 取消后仍能写出最后一个状态。
func (p *StatusPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case status := <-p.slot.C():
			p.publishWithTimeout(status)
		}
	}
}

func (p *StatusPublisher) flush() {
	select {
	case status := <-p.slot.C():
		p.publishWithTimeout(status)
	default:
	}
}

func (p *StatusPublisher) publishWithTimeout(status models.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	p.publish(ctx, status)
}

func (p *StatusPublisher) publish(ctx context.Context, status models.Status) {
	if p.publisher != nil {
		payload, err := json.Marshal(status)
		if err != nil {
			p.logger.Error("Failed to marshal status", zap.Error(err))
			return
		}
		if err := p.publisher.Publish(StatusTopic(p.prefix, status.DeviceID), p.qos, true, payload); err != nil {
			p.logger.Error("Failed to publish status",
				zap.String("device_id", status.DeviceID),
				zap.Error(err),
			)
		}
	}

	if p.cache != nil {
		if err := p.cache.UpdateStatusCache(ctx, status); err != nil {
			p.logger.Error("Failed to update status cache",
				zap.String("device_id", status.DeviceID),
				zap.Error(err),
			)
		}
	}
}
