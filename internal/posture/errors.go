package posture

import "errors"

var (
	// ErrEmptyWindow 窗口内没有有效样本（整窗都未检测到关节）
	ErrEmptyWindow = errors.New("empty signal window")
	// ErrNoBaseline 尚未完成校准
	ErrNoBaseline = errors.New("no calibration baseline")
	// ErrSessionActive 会话已在运行
	ErrSessionActive = errors.New("session already active")
	// ErrSessionIdle 会话未启动
	ErrSessionIdle = errors.New("session is idle")
	// ErrMonitorStopped 监控循环已退出
	ErrMonitorStopped = errors.New("monitor stopped")
)
