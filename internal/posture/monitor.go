package posture

import (
	"context"
	"time"

	"github.com/santoshlite/unturtle/internal/models"

	"go.uber.org/zap"
)

type commandKind int

const (
	cmdStart commandKind = iota
	cmdRecalibrate
	cmdStop
	cmdStatus
)

func (k commandKind) String() string {
	switch k {
	case cmdStart:
		return "start"
	case cmdRecalibrate:
		return "recalibrate"
	case cmdStop:
		return "stop"
	default:
		return "status"
	}
}

type commandResult struct {
	status models.Status
	err    error
}

type command struct {
	kind  commandKind
	reply chan commandResult
}

// Monitor 会话的唯一所有者
//
// 帧数据经单槽通道、采样时钟、外部命令全部汇入同一个 goroutine，
// Session 的所有状态只在这里修改。
type Monitor struct {
	session  *Session
	slot     *LatestSlot[models.LandmarkSample]
	commands chan command
	done     chan struct{}
	tick     time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewMonitor 创建监控循环
func NewMonitor(policy Policy, deviceID string, listener Listener, logger *zap.Logger) *Monitor {
	return &Monitor{
		session:  NewSession(policy, deviceID, listener, logger),
		slot:     NewLatestSlot[models.LandmarkSample](),
		commands: make(chan command),
		done:     make(chan struct{}),
		tick:     policy.TickInterval,
		now:      time.Now,
		logger:   logger,
	}
}

// Offer 投递一帧关键点，从不阻塞；返回是否覆盖了尚未处理的旧帧
func (m *Monitor) Offer(sample models.LandmarkSample) bool {
	return m.slot.Offer(sample)
}

// Start 开始会话（进入校准）
func (m *Monitor) Start(ctx context.Context) (models.Status, error) {
	return m.do(ctx, cmdStart)
}

// Recalibrate 重新校准
func (m *Monitor) Recalibrate(ctx context.Context) (models.Status, error) {
	return m.do(ctx, cmdRecalibrate)
}

// Stop 停止会话
func (m *Monitor) Stop(ctx context.Context) (models.Status, error) {
	return m.do(ctx, cmdStop)
}

// Status 查询当前状态
func (m *Monitor) Status(ctx context.Context) (models.Status, error) {
	return m.do(ctx, cmdStatus)
}

func (m *Monitor) do(ctx context.Context, kind commandKind) (models.Status, error) {
	cmd := command{kind: kind, reply: make(chan commandResult, 1)}

	select {
	case m.commands <- cmd:
	case <-m.done:
		return models.Status{}, ErrMonitorStopped
	case <-ctx.Done():
		return models.Status{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res.status, res.err
	case <-ctx.Done():
		return models.Status{}, ctx.Err()
	}
}

// Run 运行监控循环直到 ctx 取消
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.done)

	var (
		ticker *time.Ticker
		tickC  <-chan time.Time
	)
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickC = nil
		}
	}
	defer stopTicker()

	m.logger.Info("Posture monitor started", zap.Duration("tick_interval", m.tick))

	for {
		select {
		case <-ctx.Done():
			m.session.Stop(m.now())
			m.logger.Info("Posture monitor stopped")
			return nil

		case sample := <-m.slot.C():
			m.session.OnSample(sample, m.now())

		case <-tickC:
			m.session.Tick(m.now())

		case cmd := <-m.commands:
			res := m.handle(cmd)
			cmd.reply <- res

			// 只要会话在运行就保持采样时钟；停止时丢弃旧时钟，重启后使用新的 ticker
			if m.session.State() == StateIdle {
				stopTicker()
			} else if ticker == nil {
				ticker = time.NewTicker(m.tick)
				tickC = ticker.C
			}
		}
	}
}

func (m *Monitor) handle(cmd command) commandResult {
	now := m.now()

	var err error
	switch cmd.kind {
	case cmdStart:
		err = m.session.Start(now)
	case cmdRecalibrate:
		err = m.session.Recalibrate(now)
	case cmdStop:
		m.session.Stop(now)
	}

	if err != nil {
		m.logger.Debug("Session command rejected",
			zap.String("command", cmd.kind.String()),
			zap.Error(err),
		)
	}
	return commandResult{status: m.session.Status(), err: err}
}
