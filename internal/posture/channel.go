package posture

import "github.com/santoshlite/unturtle/internal/models"

// Channel 从关键点中提取的标量信号通道
type Channel string

const (
	// ChannelHeadZ 头部中心深度（离相机距离）
	ChannelHeadZ Channel = "head_z"
	// ChannelHeadY 头部中心高度
	ChannelHeadY Channel = "head_y"
)

var channelExtractors = map[Channel]func(models.LandmarkSample) (float64, bool){
	ChannelHeadZ: func(s models.LandmarkSample) (float64, bool) {
		if s.CenterHead == nil {
			return 0, false
		}
		return s.CenterHead.Z, true
	},
	ChannelHeadY: func(s models.LandmarkSample) (float64, bool) {
		if s.CenterHead == nil {
			return 0, false
		}
		return s.CenterHead.Y, true
	},
}

// Extract 提取通道值，关节缺失时返回 false
func (c Channel) Extract(sample *models.LandmarkSample) (float64, bool) {
	if sample == nil {
		return 0, false
	}
	extract, ok := channelExtractors[c]
	if !ok {
		return 0, false
	}
	return extract(*sample)
}

// ParseChannel 解析通道名
func ParseChannel(name string) (Channel, bool) {
	c := Channel(name)
	_, ok := channelExtractors[c]
	return c, ok
}
