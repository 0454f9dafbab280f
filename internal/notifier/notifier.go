package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/santoshlite/unturtle/internal/models"
	"github.com/santoshlite/unturtle/internal/posture"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink 报警投递通道
type Sink interface {
	Name() string
	Send(ctx context.Context, alert models.PostureAlert) error
}

// Metrics 投递统计
type Metrics struct {
	mu sync.RWMutex

	Enqueued  int64
	Dropped   int64 // 队列满被丢弃
	Delivered int64 // 按 sink 计数
	Failed    int64 // 按 sink 计数
}

// Snapshot 获取统计快照（线程安全）
func (m *Metrics) Snapshot() (enqueued, dropped, delivered, failed int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Enqueued, m.Dropped, m.Delivered, m.Failed
}

func (m *Metrics) add(field *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field++
}

// Dispatcher 报警分发器
//
// TriggerAlert 只做入队，可以在会话 goroutine 上直接调用；
// Run 中的 worker 依次投递到所有 sink，单个 sink 失败不影响其它 sink。
type Dispatcher struct {
	sinks   []Sink
	queue   chan models.PostureAlert
	timeout time.Duration
	pool    *MessagePool
	logger  *zap.Logger
	metrics *Metrics
}

// NewDispatcher 创建分发器
func NewDispatcher(queueSize int, timeout time.Duration, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sinks:   sinks,
		queue:   make(chan models.PostureAlert, queueSize),
		timeout: timeout,
		pool:    NewMessagePool(),
		logger:  logger,
		metrics: &Metrics{},
	}
}

// Metrics 投递统计
func (d *Dispatcher) Metrics() *Metrics { return d.metrics }

// BuildAlert 构建报警事件（随机文案 + 事件ID）
func (d *Dispatcher) BuildAlert(a posture.Alert) models.PostureAlert {
	return models.PostureAlert{
		EventID:             uuid.New().String(),
		DeviceID:            a.DeviceID,
		Title:               AlertTitle,
		Message:             d.pool.Pick(),
		Deviation:           a.Deviation,
		ConsecutiveFailures: a.ConsecutiveFailures,
		TriggeredAt:         a.TriggeredAt,
	}
}

// TriggerAlert 触发报警（不阻塞，队列满时丢弃）
func (d *Dispatcher) TriggerAlert(a posture.Alert) bool {
	alert := d.BuildAlert(a)
	select {
	case d.queue <- alert:
		d.metrics.add(&d.metrics.Enqueued)
		return true
	default:
		d.metrics.add(&d.metrics.Dropped)
		d.logger.Warn("Alert queue full, dropping alert",
			zap.String("event_id", alert.EventID),
			zap.String("device_id", alert.DeviceID),
		)
		return false
	}
}

// Run 投递循环，直到 ctx 取消
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case alert := <-d.queue:
			d.deliver(ctx, alert)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, alert models.PostureAlert) {
	for _, sink := range d.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sink.Send(sendCtx, alert)
		cancel()

		if err != nil {
			d.metrics.add(&d.metrics.Failed)
			d.logger.Error("Failed to deliver posture alert",
				zap.String("sink", sink.Name()),
				zap.String("event_id", alert.EventID),
				zap.Error(err),
			)
			continue
		}
		d.metrics.add(&d.metrics.Delivered)
	}

	d.logger.Info("Posture alert dispatched",
		zap.String("event_id", alert.EventID),
		zap.String("device_id", alert.DeviceID),
		zap.Float64("deviation", alert.Deviation),
		zap.Int("sinks", len(d.sinks)),
	)
}
