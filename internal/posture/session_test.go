package posture

import (
	"testing"
	"time"

	"github.com/santoshlite/unturtle/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingListener struct {
	statuses           []models.Status
	classifications    []Classification
	alerts             []Alert
	calibrationFailure []error
}

func (r *recordingListener) OnStatus(s models.Status) {
	r.statuses = append(r.statuses, s)
}

func (r *recordingListener) OnClassification(c Classification) {
	r.classifications = append(r.classifications, c)
}

func (r *recordingListener) OnAlert(a Alert) {
	r.alerts = append(r.alerts, a)
}

func (r *recordingListener) OnCalibrationFailed(err error) {
	r.calibrationFailure = append(r.calibrationFailure, err)
}

type sessionHarness struct {
	t        *testing.T
	session  *Session
	listener *recordingListener
	policy   Policy
	now      time.Time
}

func newHarness(t *testing.T) *sessionHarness {
	policy := DefaultPolicy()
	listener := &recordingListener{}
	return &sessionHarness{
		t:        t,
		session:  NewSession(policy, "desk-1", listener, zap.NewNop()),
		listener: listener,
		policy:   policy,
		now:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func head(z float64) models.LandmarkSample {
	return models.LandmarkSample{DeviceID: "desk-1", CenterHead: &models.Point3D{Z: z}}
}

func missing() models.LandmarkSample {
	return models.LandmarkSample{DeviceID: "desk-1"}
}

func (h *sessionHarness) tick() {
	h.now = h.now.Add(h.policy.TickInterval)
	h.session.Tick(h.now)
}

func (h *sessionHarness) sample(s models.LandmarkSample) {
	h.session.OnSample(s, h.now)
}

// calibrate 送入恒定样本直到校准窗口结束（延迟 + 窗口）
func (h *sessionHarness) calibrate(sample models.LandmarkSample) {
	h.sample(sample)
	delayTicks := int(h.policy.CalibrationDelay / h.policy.TickInterval)
	for i := 0; i < delayTicks+h.policy.CalibrationTicks(); i++ {
		h.sample(sample)
		h.tick()
	}
}

// trackingWindow 送入一个完整跟踪窗口，values 之外的 tick 视为未检测到
func (h *sessionHarness) trackingWindow(values ...float64) {
	for i := 0; i < h.policy.TrackingTicks(); i++ {
		if i < len(values) {
			h.sample(head(values[i]))
		} else {
			h.sample(missing())
		}
		h.tick()
	}
}

func TestSession_StartsIdle(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, StateIdle, h.session.State())
	h.sample(head(1.0))
	h.tick()

	assert.Empty(t, h.listener.statuses)
	_, ok := h.session.Baseline(ChannelHeadZ)
	assert.False(t, ok)
}

func TestSession_CalibrationProducesBaseline(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))
	assert.Equal(t, StateCalibrating, h.session.State())

	h.calibrate(head(1.0))

	assert.Equal(t, StateTracking, h.session.State())
	baseline, ok := h.session.Baseline(ChannelHeadZ)
	require.True(t, ok)
	assert.Equal(t, 1.0, baseline)

	last := h.listener.statuses[len(h.listener.statuses)-1]
	assert.Equal(t, "tracking", last.State)
	assert.False(t, last.IsCalibrating)
	assert.True(t, last.GoodPosture)
	assert.Equal(t, 1.0, last.Baseline["head_z"])
}

func TestSession_CalibrationWaitsForDelay(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))

	// 没有帧到达之前，不开始校准
	for i := 0; i < 50; i++ {
		h.tick()
	}
	assert.Equal(t, StateCalibrating, h.session.State())
	assert.Nil(t, h.session.calibration)

	h.sample(head(1.0))
	for i := 0; i < 9; i++ {
		h.tick()
	}
	assert.Nil(t, h.session.calibration)
	h.tick()
	assert.NotNil(t, h.session.calibration)
}

func TestSession_EmptyCalibrationKeepsBaseline(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))

	h.calibrate(missing())

	assert.Equal(t, StateCalibrating, h.session.State())
	require.Len(t, h.listener.calibrationFailure, 1)
	assert.ErrorIs(t, h.listener.calibrationFailure[0], ErrEmptyWindow)
	_, ok := h.session.Baseline(ChannelHeadZ)
	assert.False(t, ok)

	// 已有基线时，失败的重新校准不覆盖原基线
	h.calibrate(head(1.0))
	require.Equal(t, StateTracking, h.session.State())
	require.NoError(t, h.session.Recalibrate(h.now))

	h.calibrate(missing())

	assert.Equal(t, StateCalibrating, h.session.State())
	baseline, ok := h.session.Baseline(ChannelHeadZ)
	require.True(t, ok)
	assert.Equal(t, 1.0, baseline)

	// 下一帧到达后自动重试
	h.calibrate(head(0.9))
	assert.Equal(t, StateTracking, h.session.State())
	baseline, _ = h.session.Baseline(ChannelHeadZ)
	assert.InDelta(t, 0.9, baseline, 1e-9)
}

func TestSession_TrackingClassifiesWindows(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))
	h.calibrate(head(1.0))

	h.trackingWindow(0.80, 0.95, 1.02, 1.30)
	require.Len(t, h.listener.classifications, 1)
	assert.True(t, h.listener.classifications[0].Good)
	assert.Equal(t, 1.02, h.listener.classifications[0].Selected)

	h.trackingWindow(0.70, 0.75, 0.80)
	require.Len(t, h.listener.classifications, 2)
	assert.False(t, h.listener.classifications[1].Good)
	assert.False(t, h.session.Posture().Good)
	assert.Equal(t, 1, h.session.Posture().ConsecutiveFailures)

	h.trackingWindow(2.5)
	require.Len(t, h.listener.classifications, 3)
	assert.True(t, h.listener.classifications[2].Good)
	assert.Equal(t, 0, h.session.Posture().ConsecutiveFailures)
}

func TestSession_EmptyTrackingWindowLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))
	h.calibrate(head(1.0))
	h.trackingWindow(0.7)
	before := h.session.Posture()
	statuses := len(h.listener.statuses)

	h.trackingWindow()

	assert.Len(t, h.listener.classifications, 1)
	assert.Equal(t, before, h.session.Posture())
	assert.Len(t, h.listener.statuses, statuses)
}

func TestSession_AlertAfterThreeBadWindows(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))
	h.calibrate(head(1.0))

	h.trackingWindow(0.7)
	h.trackingWindow(0.7)
	assert.Empty(t, h.listener.alerts)
	h.trackingWindow(0.7)

	require.Len(t, h.listener.alerts, 1)
	alert := h.listener.alerts[0]
	assert.Equal(t, "desk-1", alert.DeviceID)
	assert.Equal(t, 3, alert.ConsecutiveFailures)
	assert.InDelta(t, 0.3, alert.Deviation, 1e-9)
	assert.Equal(t, h.now, alert.TriggeredAt)

	// 冷却期内持续不良不再报警
	for i := 0; i < 10; i++ {
		h.trackingWindow(0.7)
	}
	assert.Len(t, h.listener.alerts, 1)
}

func TestSession_TwoBadOneGoodDoesNotAlert(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))
	h.calibrate(head(1.0))

	h.trackingWindow(0.7)
	h.trackingWindow(0.7)
	h.trackingWindow(1.0)
	h.trackingWindow(0.7)
	h.trackingWindow(0.7)

	assert.Empty(t, h.listener.alerts)
	assert.Equal(t, 2, h.session.Posture().ConsecutiveFailures)
}

func TestSession_RecalibrateDiscardsTrackingWindow(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))
	h.calibrate(head(1.0))

	h.trackingWindow(0.7)
	h.trackingWindow(0.7)
	require.Equal(t, 2, h.session.Posture().ConsecutiveFailures)

	// 跟踪窗口进行到一半时重新校准
	for i := 0; i < 5; i++ {
		h.sample(head(0.7))
		h.tick()
	}
	require.NotNil(t, h.session.tracking)

	require.NoError(t, h.session.Recalibrate(h.now))

	assert.Equal(t, StateCalibrating, h.session.State())
	assert.Nil(t, h.session.tracking)
	assert.Equal(t, NewPostureState(), h.session.Posture())
	last := h.listener.statuses[len(h.listener.statuses)-1]
	assert.True(t, last.IsCalibrating)
	assert.True(t, last.GoodPosture)
	assert.Equal(t, 0, last.ConsecutiveFailures)

	// 剩余 tick 不会产生判定
	for i := 0; i < 5; i++ {
		h.tick()
	}
	assert.Len(t, h.listener.classifications, 2)

	// 新基线下同样的数值视为正常
	h.calibrate(head(0.7))
	h.trackingWindow(0.7)
	require.Len(t, h.listener.classifications, 3)
	assert.True(t, h.listener.classifications[2].Good)
}

func TestSession_StopDiscardsPartialWindow(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))
	h.calibrate(head(1.0))

	for i := 0; i < 5; i++ {
		h.sample(head(0.7))
		h.tick()
	}
	h.session.Stop(h.now)
	assert.Equal(t, StateIdle, h.session.State())

	for i := 0; i < 20; i++ {
		h.sample(head(0.7))
		h.tick()
	}
	assert.Empty(t, h.listener.classifications)

	// 重新开始需要重新校准
	require.NoError(t, h.session.Start(h.now))
	assert.Equal(t, StateCalibrating, h.session.State())
	h.trackingWindow(0.7)
	assert.Empty(t, h.listener.classifications)
}

func TestSession_CommandErrors(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.session.Recalibrate(h.now), ErrSessionIdle)
	require.NoError(t, h.session.Start(h.now))
	assert.ErrorIs(t, h.session.Start(h.now), ErrSessionActive)

	// 校准中也允许重新校准
	assert.NoError(t, h.session.Recalibrate(h.now))
	assert.Equal(t, StateCalibrating, h.session.State())
}

func TestSession_OnlyOneWindowPerKind(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.Start(h.now))
	h.calibrate(head(1.0))

	h.sample(head(1.0))
	first := h.session.tracking
	require.NotNil(t, first)

	assert.False(t, h.session.openTracking())
	h.sample(head(1.0))
	assert.Same(t, first, h.session.tracking)
}
