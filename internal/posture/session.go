package posture

import (
	"time"

	"github.com/santoshlite/unturtle/internal/models"

	"go.uber.org/zap"
)

// State 会话状态
type State int

const (
	StateIdle State = iota
	StateCalibrating
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateCalibrating:
		return "calibrating"
	case StateTracking:
		return "tracking"
	default:
		return "idle"
	}
}

// Alert 报警门限触发时产生的事件
type Alert struct {
	DeviceID            string
	Deviation           float64
	ConsecutiveFailures int // 触发时的连续不良次数（触发后已清零）
	TriggeredAt         time.Time
}

// Listener 会话事件回调，均在会话所属的 goroutine 上同步调用，不应阻塞
type Listener interface {
	OnStatus(status models.Status)
	OnClassification(c Classification)
	OnAlert(alert Alert)
	OnCalibrationFailed(err error)
}

// NopListener 空实现，可嵌入只关心部分事件的 Listener
type NopListener struct{}

func (NopListener) OnStatus(models.Status)          {}
func (NopListener) OnClassification(Classification) {}
func (NopListener) OnAlert(Alert)                   {}
func (NopListener) OnCalibrationFailed(error)       {}

// Session 坐姿监测会话状态机：Idle → Calibrating → Tracking
//
// Session 不是并发安全的，所有方法必须在同一个 goroutine 中调用（见 Monitor）。
type Session struct {
	policy   Policy
	deviceID string
	listener Listener
	logger   *zap.Logger

	state    State
	baseline map[Channel]float64
	posture  PostureState

	// 最新一帧（后写覆盖），tick 时读取
	latest *models.LandmarkSample

	calibration *SignalWindow // nil 表示没有进行中的校准窗口
	tracking    *SignalWindow // nil 表示没有进行中的跟踪窗口
	calibrateAt time.Time     // 校准窗口最早开启时间，零值表示尚未等到首帧

	updatedAt time.Time
}

// NewSession 创建会话（初始为 Idle）
func NewSession(policy Policy, deviceID string, listener Listener, logger *zap.Logger) *Session {
	if listener == nil {
		listener = NopListener{}
	}
	return &Session{
		policy:   policy,
		deviceID: deviceID,
		listener: listener,
		logger:   logger,
		state:    StateIdle,
		baseline: make(map[Channel]float64),
		posture:  NewPostureState(),
	}
}

// State 当前状态
func (s *Session) State() State { return s.state }

// Baseline 返回通道基线
func (s *Session) Baseline(c Channel) (float64, bool) {
	v, ok := s.baseline[c]
	return v, ok
}

// Posture 当前坐姿状态
func (s *Session) Posture() PostureState { return s.posture }

// Start Idle → Calibrating
func (s *Session) Start(now time.Time) error {
	if s.state != StateIdle {
		return ErrSessionActive
	}
	s.logger.Info("Posture session started", zap.String("device_id", s.deviceID))
	s.enterCalibrating(now)
	return nil
}

// Recalibrate 回到 Calibrating，丢弃进行中的窗口并重置坐姿状态
func (s *Session) Recalibrate(now time.Time) error {
	if s.state == StateIdle {
		return ErrSessionIdle
	}
	s.logger.Info("Recalibrating posture baseline",
		zap.String("device_id", s.deviceID),
		zap.String("from_state", s.state.String()),
	)
	s.enterCalibrating(now)
	return nil
}

// Stop 回到 Idle，未完成的窗口直接丢弃不做归约
func (s *Session) Stop(now time.Time) {
	if s.state == StateIdle {
		return
	}
	s.state = StateIdle
	s.calibration = nil
	s.tracking = nil
	s.calibrateAt = time.Time{}
	s.latest = nil
	s.posture = NewPostureState()
	s.logger.Info("Posture session stopped", zap.String("device_id", s.deviceID))
	s.emitStatus(now)
}

func (s *Session) enterCalibrating(now time.Time) {
	s.state = StateCalibrating
	s.calibration = nil
	s.tracking = nil
	s.calibrateAt = time.Time{}
	s.posture = NewPostureState()
	s.emitStatus(now)
}

// OnSample 接收一帧关键点（只保存最新一帧）
func (s *Session) OnSample(sample models.LandmarkSample, now time.Time) {
	if s.state == StateIdle {
		return
	}
	s.latest = &sample

	switch s.state {
	case StateCalibrating:
		if s.calibration == nil && s.calibrateAt.IsZero() {
			s.calibrateAt = now.Add(s.policy.CalibrationDelay)
		}
	case StateTracking:
		s.openTracking()
	}
}

// Tick 采样时钟，每个 TickInterval 调用一次
func (s *Session) Tick(now time.Time) {
	switch s.state {
	case StateCalibrating:
		if s.calibration != nil {
			value, ok := s.policy.Channel.Extract(s.latest)
			if s.calibration.Tick(value, ok) {
				s.closeCalibration(now)
			}
			return
		}
		if !s.calibrateAt.IsZero() && !now.Before(s.calibrateAt) {
			s.openCalibration()
		}
	case StateTracking:
		if s.tracking == nil {
			return
		}
		value, ok := s.policy.Channel.Extract(s.latest)
		if s.tracking.Tick(value, ok) {
			s.closeTracking(now)
		}
	}
}

// openCalibration 同类窗口未结束时重复开启为空操作
func (s *Session) openCalibration() bool {
	if s.calibration != nil {
		return false
	}
	s.calibration = NewSignalWindow(s.policy.CalibrationTicks())
	s.logger.Debug("Calibration window opened",
		zap.String("device_id", s.deviceID),
		zap.Int("ticks", s.calibration.Capacity()),
	)
	return true
}

func (s *Session) openTracking() bool {
	if s.tracking != nil {
		return false
	}
	s.tracking = NewSignalWindow(s.policy.TrackingTicks())
	return true
}

func (s *Session) closeCalibration(now time.Time) {
	samples := s.calibration.Drain()
	s.calibration = nil

	mean, err := CalibrationMean(samples)
	if err != nil {
		// 整窗无有效样本：保留原基线，等待下一帧后重新校准
		s.calibrateAt = time.Time{}
		s.logger.Warn("Calibration failed, will retry",
			zap.String("device_id", s.deviceID),
			zap.Error(err),
		)
		s.listener.OnCalibrationFailed(err)
		return
	}

	s.baseline[s.policy.Channel] = mean
	s.state = StateTracking
	s.posture = NewPostureState()
	s.logger.Info("Calibration completed",
		zap.String("device_id", s.deviceID),
		zap.String("channel", string(s.policy.Channel)),
		zap.Float64("baseline", mean),
		zap.Int("samples", len(samples)),
	)
	s.emitStatus(now)
}

func (s *Session) closeTracking(now time.Time) {
	samples := s.tracking.Drain()
	s.tracking = nil

	ref, ok := s.baseline[s.policy.Channel]
	if !ok {
		s.logger.Debug("Tracking window skipped", zap.Error(ErrNoBaseline))
		return
	}

	c, err := Classify(ref, samples, s.policy)
	if err != nil {
		s.logger.Debug("Tracking window skipped",
			zap.String("device_id", s.deviceID),
			zap.Error(err),
		)
		return
	}

	failures := s.posture.ConsecutiveFailures + 1
	alert := s.posture.Apply(c, now, s.policy)

	s.logger.Debug("Posture classified",
		zap.String("device_id", s.deviceID),
		zap.Bool("good", c.Good),
		zap.Float64("selected", c.Selected),
		zap.Float64("deviation", c.Deviation),
		zap.Int("consecutive_failures", s.posture.ConsecutiveFailures),
	)

	s.listener.OnClassification(c)
	if alert {
		s.listener.OnAlert(Alert{
			DeviceID:            s.deviceID,
			Deviation:           c.Deviation,
			ConsecutiveFailures: failures,
			TriggeredAt:         now,
		})
	}
	s.emitStatus(now)
}

// Status 构建状态快照
func (s *Session) Status() models.Status {
	status := models.Status{
		DeviceID:            s.deviceID,
		State:               s.state.String(),
		IsCalibrating:       s.state == StateCalibrating,
		GoodPosture:         s.posture.Good,
		ConsecutiveFailures: s.posture.ConsecutiveFailures,
		UpdatedAt:           s.updatedAt,
	}
	if len(s.baseline) > 0 {
		status.Baseline = make(map[string]float64, len(s.baseline))
		for c, v := range s.baseline {
			status.Baseline[string(c)] = v
		}
	}
	if s.posture.LastAlertAt != nil {
		at := *s.posture.LastAlertAt
		status.LastAlertAt = &at
	}
	return status
}

func (s *Session) emitStatus(now time.Time) {
	s.updatedAt = now
	s.listener.OnStatus(s.Status())
}
