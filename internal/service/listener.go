package service

import (
	"github.com/santoshlite/unturtle/internal/models"
	"github.com/santoshlite/unturtle/internal/notifier"
	"github.com/santoshlite/unturtle/internal/posture"

	"go.uber.org/zap"
)

// sessionListener 把会话事件转交给各输出端
//
// 在监控循环的 goroutine 上被调用，所有转交都必须是非阻塞的。
type sessionListener struct {
	publisher  *notifier.StatusPublisher
	dispatcher *notifier.Dispatcher
	broadcast  func(models.Status) // websocket 推送，未启用 HTTP 时为 nil
	logger     *zap.Logger
}

func (l *sessionListener) OnStatus(status models.Status) {
	l.publisher.Publish(status)
	if l.broadcast != nil {
		l.broadcast(status)
	}
}

func (l *sessionListener) OnClassification(c posture.Classification) {
	l.logger.Debug("Posture window classified",
		zap.Float64("reference", c.Reference),
		zap.Float64("selected", c.Selected),
		zap.Float64("deviation", c.Deviation),
		zap.Int("samples", c.Samples),
		zap.Bool("good", c.Good),
	)
}

func (l *sessionListener) OnAlert(a posture.Alert) {
	l.dispatcher.TriggerAlert(a)
}

func (l *sessionListener) OnCalibrationFailed(err error) {
	l.logger.Warn("Calibration window had no usable samples, retrying", zap.Error(err))
}
