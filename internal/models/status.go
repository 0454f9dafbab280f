package models

import "time"

// Status 会话状态快照（供 UI / 缓存 / MQTT 状态主题使用）
type Status struct {
	DeviceID            string             `json:"device_id"`
	State               string             `json:"state"` // idle / calibrating / tracking
	IsCalibrating       bool               `json:"is_calibrating"`
	GoodPosture         bool               `json:"good_posture"`
	Baseline            map[string]float64 `json:"baseline,omitempty"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	LastAlertAt         *time.Time         `json:"last_alert_at,omitempty"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// PostureAlert 坐姿报警事件
type PostureAlert struct {
	EventID             string    `json:"event_id"`
	DeviceID            string    `json:"device_id"`
	Title               string    `json:"title"`
	Message             string    `json:"message"`
	Deviation           float64   `json:"deviation"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TriggeredAt         time.Time `json:"triggered_at"`
}
