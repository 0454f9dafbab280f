package posture

import "time"

// PostureState 坐姿状态：好/坏、连续不良计数、上次报警时间
type PostureState struct {
	Good                bool
	ConsecutiveFailures int
	LastAlertAt         *time.Time
}

// NewPostureState 初始状态：良好、计数 0、从未报警
func NewPostureState() PostureState {
	return PostureState{Good: true}
}

// Apply 应用一次判定结果，返回是否应当报警
// 报警时记录报警时间并清零计数，之后需要重新累计连续不良次数
func (s *PostureState) Apply(c Classification, now time.Time, p Policy) bool {
	if c.Good {
		s.Good = true
		s.ConsecutiveFailures = 0
		return false
	}

	s.Good = false
	s.ConsecutiveFailures++

	if !s.alertAllowed(now, p) {
		return false
	}

	at := now
	s.LastAlertAt = &at
	s.ConsecutiveFailures = 0
	return true
}

// alertAllowed 报警门限：连续不良次数达标，且从未报警或已过冷却期
func (s *PostureState) alertAllowed(now time.Time, p Policy) bool {
	if s.ConsecutiveFailures < p.FailureThreshold {
		return false
	}
	return s.LastAlertAt == nil || now.Sub(*s.LastAlertAt) >= p.AlertCooldown
}
