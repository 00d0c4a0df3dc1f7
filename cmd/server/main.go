package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/langchou/fleetdash/internal/api/handlers"
	"github.com/langchou/fleetdash/internal/config"
	"github.com/langchou/fleetdash/internal/models"
	"github.com/langchou/fleetdash/internal/odometer"
	"github.com/langchou/fleetdash/internal/repository"
	"github.com/langchou/fleetdash/internal/service"
	"github.com/langchou/fleetdash/pkg/ws"
)

const sessionPurgeInterval = 30 * time.Minute

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting fleet dashboard", zap.String("port", cfg.ServerPort))

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库
	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	// 执行数据库迁移
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	// 创建 Repository
	vehicleRepo := repository.NewVehicleRepository(db)
	readingRepo := repository.NewOdometerRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger.Named("ws"))
	go wsHub.Run(ctx)

	// 创建服务
	fleetService := service.NewFleetService(logger.Named("fleet"), vehicleRepo, readingRepo, wsHub)
	complaintService := service.NewComplaintService(logger.Named("complaint"), complaintRepo, vehicleRepo, wsHub)
	documentService := service.NewDocumentService(logger.Named("document"), documentRepo, vehicleRepo, wsHub, cfg.MaxUploadBytes)
	authService := service.NewAuthService(logger.Named("auth"), userRepo, cfg.SessionTTL)

	// 新连接先收到当前汇总
	wsHub.SetInitDataProvider(func() *ws.InitData {
		initCtx, initCancel := context.WithTimeout(ctx, 5*time.Second)
		defer initCancel()

		summary, err := fleetService.Summary(initCtx, odometer.PeriodAll)
		if err != nil {
			logger.Error("Failed to build init summary", zap.Error(err))
			return nil
		}
		open, err := complaintService.List(initCtx, models.ComplaintOpen)
		if err != nil {
			logger.Error("Failed to count open complaints", zap.Error(err))
			return nil
		}
		return &ws.InitData{Summary: summary, OpenComplaints: len(open)}
	})

	// 初始管理员
	created, err := authService.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		logger.Fatal("Failed to bootstrap admin user", zap.Error(err))
	}
	if created {
		logger.Info("Created initial admin user", zap.String("username", cfg.AdminUsername))
	}

	// 定期清理过期会话
	go purgeSessions(ctx, logger, authService)

	// 创建 HTTP 处理器
	handler := handlers.NewHandler(
		logger.Named("http"),
		fleetService,
		complaintService,
		documentService,
		authService,
		wsHub,
		cfg.CORSOrigin,
		cfg.MaxUploadBytes,
	)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.RequestLogger(logger.Named("http")))
	router.Use(handlers.CORS(cfg.CORSOrigin))

	// 注册路由
	handler.RegisterRoutes(router)

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// 停止 Hub 与后台任务
	cancel()

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

// purgeSessions 定期删除过期会话
func purgeSessions(ctx context.Context, logger *zap.Logger, auth *service.AuthService) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := auth.PurgeExpiredSessions(ctx); err != nil {
				logger.Warn("Failed to purge expired sessions", zap.Error(err))
			}
		}
	}
}
