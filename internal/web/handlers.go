package web

import (
	"context"
	"errors"

	"github.com/santoshlite/unturtle/internal/models"
	"github.com/santoshlite/unturtle/internal/posture"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// handleHealth 逐项执行依赖检查，任一失败返回 503
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	healthy := true
	results := make(map[string]string, len(s.checks))
	for _, nc := range s.checks {
		if err := nc.check(ctx); err != nil {
			healthy = false
			results[nc.name] = err.Error()
			continue
		}
		results[nc.name] = "ok"
	}

	if !healthy {
		s.logger.Warn("Health check failed", zap.Any("checks", results))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"checks": results,
		})
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"checks": results,
	})
}

// handleStatus 返回当前会话状态
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return s.respond(c, "status", s.controller.Status)
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	return s.respond(c, "start", s.controller.Start)
}

func (s *Server) handleRecalibrate(c *fiber.Ctx) error {
	return s.respond(c, "recalibrate", s.controller.Recalibrate)
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	return s.respond(c, "stop", s.controller.Stop)
}

func (s *Server) respond(c *fiber.Ctx, name string, op func(context.Context) (models.Status, error)) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	status, err := op(ctx)
	if err != nil {
		code := statusCode(err)
		if code >= fiber.StatusInternalServerError {
			s.logger.Error("Session request failed", zap.String("op", name), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(status)
}

// statusCode 会话错误到 HTTP 状态码
func statusCode(err error) int {
	switch {
	case errors.Is(err, posture.ErrSessionActive), errors.Is(err, posture.ErrSessionIdle):
		return fiber.StatusConflict
	case errors.Is(err, posture.ErrMonitorStopped):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
