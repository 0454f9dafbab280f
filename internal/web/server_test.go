package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/santoshlite/unturtle/internal/models"
	"github.com/santoshlite/unturtle/internal/posture"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMonitorServer(t *testing.T) (*Server, context.CancelFunc) {
	monitor := posture.NewMonitor(posture.DefaultPolicy(), "desk-1", posture.NopListener{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go monitor.Run(ctx)
	t.Cleanup(cancel)
	return NewServer(0, monitor, zap.NewNop()), cancel
}

func do(t *testing.T, app *fiber.App, method, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	return resp.StatusCode, decoded
}

func TestServer_Health(t *testing.T) {
	s, _ := newMonitorServer(t)

	code, body := do(t, s.App(), "GET", "/health")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_HealthReportsFailedCheck(t *testing.T) {
	s, _ := newMonitorServer(t)
	s.AddHealthCheck("redis", func(ctx context.Context) error { return nil })
	s.AddHealthCheck("mqtt", func(ctx context.Context) error { return errors.New("mqtt not connected") })

	code, body := do(t, s.App(), "GET", "/health")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])

	checks, ok := body["checks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", checks["redis"])
	assert.Equal(t, "mqtt not connected", checks["mqtt"])
}

func TestServer_SessionLifecycle(t *testing.T) {
	s, _ := newMonitorServer(t)
	app := s.App()

	code, body := do(t, app, "GET", "/api/status")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, "desk-1", body["device_id"])

	code, body = do(t, app, "POST", "/api/session/start")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "calibrating", body["state"])
	assert.Equal(t, true, body["is_calibrating"])

	code, body = do(t, app, "POST", "/api/session/start")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, posture.ErrSessionActive.Error(), body["error"])

	code, body = do(t, app, "POST", "/api/session/recalibrate")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "calibrating", body["state"])

	code, body = do(t, app, "POST", "/api/session/stop")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "idle", body["state"])

	code, body = do(t, app, "POST", "/api/session/recalibrate")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, posture.ErrSessionIdle.Error(), body["error"])
}

func TestServer_MonitorStopped(t *testing.T) {
	s, cancel := newMonitorServer(t)
	cancel()

	require.Eventually(t, func() bool {
		code, _ := do(t, s.App(), "GET", "/api/status")
		return code == fiber.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)
}

func TestServer_WebsocketRequiresUpgrade(t *testing.T) {
	s, _ := newMonitorServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/status", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, fiber.StatusConflict, statusCode(posture.ErrSessionActive))
	assert.Equal(t, fiber.StatusConflict, statusCode(posture.ErrSessionIdle))
	assert.Equal(t, fiber.StatusServiceUnavailable, statusCode(posture.ErrMonitorStopped))
	assert.Equal(t, fiber.StatusGatewayTimeout, statusCode(context.DeadlineExceeded))
	assert.Equal(t, fiber.StatusInternalServerError, statusCode(errors.New("boom")))
}

func TestHub_BroadcastToClients(t *testing.T) {
	hub := NewHub("status", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := &Client{hub: hub, send: make(chan Message, sendBuffer)}
	require.True(t, hub.add(client))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.BroadcastJSON(models.Status{DeviceID: "desk-1", State: "tracking"}))

	select {
	case msg := <-client.send:
		var status models.Status
		require.NoError(t, json.Unmarshal(msg.Data, &status))
		assert.Equal(t, "tracking", status.State)
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}

	hub.remove(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub("status", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// 无缓冲且无人读取的客户端
	slow := &Client{hub: hub, send: make(chan Message)}
	require.True(t, hub.add(slow))

	hub.Broadcast(NewJSONMessage([]byte(`{}`)))

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHub_StoppedRejectsClients(t *testing.T) {
	hub := NewHub("status", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	assert.False(t, hub.add(&Client{hub: hub, send: make(chan Message, 1)}))
}
