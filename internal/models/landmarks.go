package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Point3D 相机坐标系下的三维点（单位：米）
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LandmarkSample 单帧人体关键点（任意关节都可能缺失，nil 表示该帧未检测到）
type LandmarkSample struct {
	DeviceID  string
	Timestamp time.Time

	TopHead        *Point3D
	CenterHead     *Point3D
	CenterShoulder *Point3D
	LeftShoulder   *Point3D
	RightShoulder  *Point3D
}

// LandmarkMessage 姿态估计端上报的消息格式（MQTT payload / Redis Streams data 字段）
type LandmarkMessage struct {
	DeviceID  string         `json:"device_id"`
	Timestamp int64          `json:"timestamp"` // Unix 毫秒
	Landmarks LandmarkJoints `json:"landmarks"`
}

// LandmarkJoints 关节集合
type LandmarkJoints struct {
	TopHead        *Point3D `json:"top_head,omitempty"`
	CenterHead     *Point3D `json:"center_head,omitempty"`
	CenterShoulder *Point3D `json:"center_shoulder,omitempty"`
	LeftShoulder   *Point3D `json:"left_shoulder,omitempty"`
	RightShoulder  *Point3D `json:"right_shoulder,omitempty"`
}

// DecodeLandmarkMessage 解析上报消息
// timestamp 缺失时使用 receivedAt
func DecodeLandmarkMessage(payload []byte, receivedAt time.Time) (LandmarkSample, error) {
	var msg LandmarkMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return LandmarkSample{}, fmt.Errorf("failed to unmarshal landmark message: %w", err)
	}
	return msg.ToSample(receivedAt), nil
}

// ToSample 转换为内部样本
func (m LandmarkMessage) ToSample(receivedAt time.Time) LandmarkSample {
	ts := receivedAt
	if m.Timestamp > 0 {
		ts = time.UnixMilli(m.Timestamp)
	}
	return LandmarkSample{
		DeviceID:       m.DeviceID,
		Timestamp:      ts,
		TopHead:        m.Landmarks.TopHead,
		CenterHead:     m.Landmarks.CenterHead,
		CenterShoulder: m.Landmarks.CenterShoulder,
		LeftShoulder:   m.Landmarks.LeftShoulder,
		RightShoulder:  m.Landmarks.RightShoulder,
	}
}
