package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/santoshlite/unturtle/common/logger"
	"github.com/santoshlite/unturtle/internal/config"
	"github.com/santoshlite/unturtle/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "unturtle")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting unturtle service",
		zap.String("device_id", cfg.DeviceID),
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("landmark_source", cfg.LandmarkSource),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	// 3. 创建服务
	postureService, err := service.NewPostureService(cfg, log)
	if err != nil {
		log.Fatal("Failed to create posture service", zap.Error(err))
	}
	defer postureService.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceErrChan := make(chan error, 1)
	go func() {
		serviceErrChan <- postureService.Start(ctx)
	}()

	// 5. 等待信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
		if err := <-serviceErrChan; err != nil {
			log.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-serviceErrChan:
		if err != nil {
			log.Error("Service error", zap.Error(err))
			postureService.Stop()
			log.Sync()
			os.Exit(1)
		}
	}

	log.Info("Unturtle service stopped")
}
