package web

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santoshlite/unturtle/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Controller 会话控制与状态查询（posture.Monitor 实现）
type Controller interface {
	Start(ctx context.Context) (models.Status, error)
	Recalibrate(ctx context.Context) (models.Status, error)
	Stop(ctx context.Context) (models.Status, error)
	Status(ctx context.Context) (models.Status, error)
}

// HealthCheck 依赖检查，返回 nil 表示可用
type HealthCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check HealthCheck
}

// Server 状态与命令 HTTP 服务
type Server struct {
	app        *fiber.App
	port       int
	controller Controller
	statusHub  *Hub
	checks     []namedCheck // 只在 Run 之前注册
	timeout    time.Duration
	logger     *zap.Logger
}

// NewServer 创建 HTTP 服务
func NewServer(port int, controller Controller, logger *zap.Logger) *Server {
	s := &Server{
		port:       port,
		controller: controller,
		statusHub:  NewHub("status", logger),
		timeout:    5 * time.Second,
		logger:     logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Unturtle",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/session/start", s.handleStart)
	api.Post("/session/recalibrate", s.handleRecalibrate)
	api.Post("/session/stop", s.handleStop)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// AddHealthCheck 注册 /health 检查项
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks = append(s.checks, namedCheck{name: name, check: check})
}

// App 返回 fiber 应用（测试用）
func (s *Server) App() *fiber.App { return s.app }

// StatusHub 状态广播中心
func (s *Server) StatusHub() *Hub { return s.statusHub }

// Run 启动广播中心并监听端口，ctx 取消时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.Int("port", s.port))
		errCh <- s.app.Listen(fmt.Sprintf(":%d", s.port))
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
		return nil
	}
}

// BroadcastStatus 推送状态到所有 websocket 客户端
func (s *Server) BroadcastStatus(status models.Status) {
	if err := s.statusHub.BroadcastJSON(status); err != nil {
		s.logger.Error("Failed to broadcast status", zap.Error(err))
	}
}

// handleStatusWS 连接后先推送当前状态，此后每次状态变化都会推送
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	var initial *Message

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	status, err := s.controller.Status(ctx)
	cancel()
	if err == nil {
		if data, err := json.Marshal(status); err == nil {
			msg := NewJSONMessage(data)
			initial = &msg
		}
	}

	client := NewClient(s.statusHub, conn, initial)
	if client == nil {
		return
	}
	client.Run()
}
