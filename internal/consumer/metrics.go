package consumer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Metrics 监控指标
type Metrics struct {
	mu sync.RWMutex

	// 消息处理统计
	MessagesProcessed int64 // 处理的消息总数
	MessagesSucceeded int64 // 成功投递到监控循环的帧数
	MessagesFailed    int64 // 处理失败的消息数
	MessagesSkipped   int64 // 其它设备的消息
	FramesReplaced    int64 // 被新帧覆盖、未被处理的旧帧

	// 错误分类统计
	ErrorsParse int64
	ErrorsAck   int64

	LastProcessTime time.Time
	StartTime       time.Time
}

// NewMetrics 创建指标
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// GetSnapshot 获取指标快照（线程安全）
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		MessagesProcessed: m.MessagesProcessed,
		MessagesSucceeded: m.MessagesSucceeded,
		MessagesFailed:    m.MessagesFailed,
		MessagesSkipped:   m.MessagesSkipped,
		FramesReplaced:    m.FramesReplaced,
		ErrorsParse:       m.ErrorsParse,
		ErrorsAck:         m.ErrorsAck,
		LastProcessTime:   m.LastProcessTime,
		StartTime:         m.StartTime,
	}
}

// IncrementProcessed 增加处理计数
func (m *Metrics) IncrementProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesProcessed++
}

// IncrementSucceeded 增加成功计数
func (m *Metrics) IncrementSucceeded(replaced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSucceeded++
	if replaced {
		m.FramesReplaced++
	}
	m.LastProcessTime = time.Now()
}

// IncrementFailed 增加失败计数
func (m *Metrics) IncrementFailed(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesFailed++
	switch errorType {
	case "parse":
		m.ErrorsParse++
	case "ack":
		m.ErrorsAck++
	}
}

// IncrementSkipped 增加跳过计数
func (m *Metrics) IncrementSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSkipped++
}

// reportMetrics 定期报告指标
func reportMetrics(ctx context.Context, source string, metrics *Metrics, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := metrics.GetSnapshot()

			successRate := float64(0)
			if snapshot.MessagesProcessed > 0 {
				successRate = float64(snapshot.MessagesSucceeded) / float64(snapshot.MessagesProcessed) * 100
			}

			logger.Info("Metrics report",
				zap.String("source", source),
				zap.Int64("messages_processed", snapshot.MessagesProcessed),
				zap.Int64("messages_succeeded", snapshot.MessagesSucceeded),
				zap.Int64("messages_failed", snapshot.MessagesFailed),
				zap.Int64("messages_skipped", snapshot.MessagesSkipped),
				zap.Int64("frames_replaced", snapshot.FramesReplaced),
				zap.Float64("success_rate", successRate),
				zap.Int64("errors_parse", snapshot.ErrorsParse),
				zap.Int64("errors_ack", snapshot.ErrorsAck),
				zap.Duration("uptime", time.Since(snapshot.StartTime)),
			)
		}
	}
}
