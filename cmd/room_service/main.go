package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	_ "voicelink_service/cmd/room_service/docs"
	"voicelink_service/internal/room/app"
	"voicelink_service/internal/room/router"
	"voicelink_service/pkg/config"
	"voicelink_service/pkg/database"
	"voicelink_service/pkg/logger"
	testtool "voicelink_service/pkg/test_tool"
	"voicelink_service/pkg/token"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RoomService, config.EnvConfig.RoomServiceLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.Room](config.EnvConfig.RoomService, config.EnvConfig.RoomServiceYAMLPath)

	token.SetSecret(cfg.Admin.JWTSecret)
	if !config.IsProduction() {
		testtool.StartPprof()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 建立儲存後端 (DEPLOY_TARGET)
	stores, err := openStores(ctx, config.EnvConfig.DeployTarget, cfg)
	if err != nil {
		logger.Log.Fatal("Unable to open room stores", zap.String("deploy_target", string(config.EnvConfig.DeployTarget)), zap.Error(err))
	}
	defer stores.Close()

	// 2. 限流
	rateLimiter := newRateLimiter(cfg)

	// 3. RoomEvent publisher
	events := newEventPublisher(cfg)
	defer events.Close()

	// 4. 語音檔儲存 (未設定時 /api/rooms/audio 回 503)
	var storage app.ObjectStorage
	if cfg.MinIO.Host != "" {
		mc, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:      fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
			User:          cfg.MinIO.User,
			Password:      cfg.MinIO.Password,
			BucketName:    cfg.MinIO.BucketName,
			UseSSL:        cfg.MinIO.UseSSL,
			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
		})
		if err != nil {
			logger.Log.Warn("minIO unavailable, audio upload disabled", zap.Error(err))
		} else {
			storage = mc
		}
	}

	// 5. 初始化 UseCases
	settingsUC := app.NewSettingsUseCase(stores.Settings, cfg.Rooms.AutoDeleteDefault, nil)
	opts := app.RoomOptionsFromConfig(cfg.Rooms)
	relay := app.NewSignalRelayFor(opts)
	roomUC := app.NewRoomUseCase(stores.Rooms, settingsUC, relay, rateLimiter, events, opts)
	audioUC := app.NewAudioUseCase(storage, stores.Rooms, nil)

	// 6. gRPC health, 每 10 秒檢查一次 readiness
	health := database.NewHealthServer(config.EnvConfig.RoomService)
	go func() {
		if err := health.Serve(":" + cfg.GRPCPort); err != nil {
			logger.Log.Error("grpc health server stopped", zap.Error(err))
		}
	}()
	go health.Watch(ctx, 10*time.Second, roomUC.Ready)
	defer health.Stop()

	// 7. 啟動 Fiber
	r := fiber.New(app.FiberConfig(cfg.TrustedProxies))
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.RoomServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	router.RegisterRoutes(r, app.NewRoomHandler(roomUC, settingsUC, audioUC))

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down room service")
		_ = r.ShutdownWithTimeout(5 * time.Second)
	}()

	port := cfg.Port
	if port == "" {
		port = config.EnvConfig.RoomServicePort
	}
	if port == "" {
		port = "8080"
	}
	logger.Log.Info("Room Service listening", zap.String("port", port), zap.String("deploy_target", string(config.EnvConfig.DeployTarget)))
	if err := r.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
