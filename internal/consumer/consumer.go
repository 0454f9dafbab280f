package consumer

import (
	"context"
	"time"

	"github.com/santoshlite/unturtle/internal/models"
)

const metricsInterval = 60 * time.Second

// SampleSink 关键点帧接收方（posture.Monitor 实现），Offer 不得阻塞
type SampleSink interface {
	Offer(sample models.LandmarkSample) bool
}

// Controller 会话控制接口（posture.Monitor 实现）
type Controller interface {
	Start(ctx context.Context) (models.Status, error)
	Recalibrate(ctx context.Context) (models.Status, error)
	Stop(ctx context.Context) (models.Status, error)
}

// acceptDevice 配置了 DeviceID 时只接受该设备
func acceptDevice(configured, deviceID string) bool {
	return configured == "" || configured == deviceID
}
