package posture

import (
	"fmt"
	"time"
)

// Policy 坐姿判定策略参数
type Policy struct {
	TickInterval      time.Duration // 采样间隔
	CalibrationWindow time.Duration // 校准窗口时长
	TrackingWindow    time.Duration // 跟踪窗口时长
	CalibrationDelay  time.Duration // 首帧到达后延迟多久开始校准

	Deadband float64 // 偏差低于此值视为正常
	Ceiling  float64 // 偏差高于此值视为检测异常，按正常处理

	FailureThreshold int           // 连续不良次数达到此值才报警
	AlertCooldown    time.Duration // 两次报警的最小间隔

	Channel Channel // 参与判定的信号通道
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{
		TickInterval:      100 * time.Millisecond,
		CalibrationWindow: 3 * time.Second,
		TrackingWindow:    1 * time.Second,
		CalibrationDelay:  1 * time.Second,
		Deadband:          0.10,
		Ceiling:           1.00,
		FailureThreshold:  3,
		AlertCooldown:     60 * time.Second,
		Channel:           ChannelHeadZ,
	}
}

// Validate 校验策略参数
func (p Policy) Validate() error {
	if p.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", p.TickInterval)
	}
	if p.CalibrationWindow < p.TickInterval {
		return fmt.Errorf("calibration window %v shorter than one tick %v", p.CalibrationWindow, p.TickInterval)
	}
	if p.TrackingWindow < p.TickInterval {
		return fmt.Errorf("tracking window %v shorter than one tick %v", p.TrackingWindow, p.TickInterval)
	}
	if p.CalibrationDelay < 0 {
		return fmt.Errorf("calibration delay must not be negative, got %v", p.CalibrationDelay)
	}
	if p.Deadband < 0 || p.Ceiling < p.Deadband {
		return fmt.Errorf("invalid deadband/ceiling: %v/%v", p.Deadband, p.Ceiling)
	}
	if p.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be at least 1, got %d", p.FailureThreshold)
	}
	if p.AlertCooldown < 0 {
		return fmt.Errorf("alert cooldown must not be negative, got %v", p.AlertCooldown)
	}
	if _, ok := channelExtractors[p.Channel]; !ok {
		return fmt.Errorf("unknown channel %q", p.Channel)
	}
	return nil
}

// CalibrationTicks 校准窗口的 tick 数
func (p Policy) CalibrationTicks() int {
	return ticksFor(p.CalibrationWindow, p.TickInterval)
}

// TrackingTicks 跟踪窗口的 tick 数
func (p Policy) TrackingTicks() int {
	return ticksFor(p.TrackingWindow, p.TickInterval)
}

func ticksFor(window, tick time.Duration) int {
	n := int(window / tick)
	if n < 1 {
		return 1
	}
	return n
}

// IsBad 偏差落在 [Deadband, Ceiling] 区间内判为不良坐姿（两端均包含）
func (p Policy) IsBad(deviation float64) bool {
	return deviation >= p.Deadband && deviation <= p.Ceiling
}
