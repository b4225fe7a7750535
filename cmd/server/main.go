package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"maint-engine/backend/config"
	"maint-engine/backend/internal/api/handler"
	"maint-engine/backend/internal/api/middleware"
	"maint-engine/backend/internal/api/router"
	"maint-engine/backend/internal/cache"
	"maint-engine/backend/internal/repository"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/bus"
	"maint-engine/backend/pkg/database"
	"maint-engine/backend/pkg/jwt"
	applogger "maint-engine/backend/pkg/logger"
	"maint-engine/backend/pkg/metrics"
	"maint-engine/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Engine.Location().String()),
	)

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时降级，令牌黑名单与登录限流不可用）
	var (
		blacklist service.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，令牌黑名单与登录限流将不可用", zap.Error(err))
	} else {
		blacklist = rdb
		limiter = rdb
	}

	// 5. 变更事件总线：启用 NATS 时跨实例同步，否则进程内投递
	var feed bus.Feed
	if cfg.Bus.Enabled {
		nb, err := bus.New(&cfg.Bus, logger)
		if err != nil {
			logger.Fatal("事件总线连接失败", zap.Error(err))
		}
		feed = nb
	} else {
		feed = bus.NewLocal(logger)
	}

	// 6. 加载内存视图并订阅变更
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	repo := repository.NewRepository(db)
	catalog := cache.NewCatalog(logger)
	if err := catalog.Load(ctx, repo); err != nil {
		logger.Fatal("加载内存视图失败", zap.Error(err))
	}
	if err := catalog.Subscribe(ctx, feed); err != nil {
		logger.Fatal("订阅变更事件失败", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service → Handler
	m := metrics.New()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := service.NewService(cfg, service.Deps{
		Repo:    repo,
		Catalog: catalog,
		Feed:    feed,
		Metrics: m,
		Engine:  cfg.Engine,
		Logger:  logger,
	}, jwtMgr, blacklist)

	if err := svc.Auth.EnsureBootstrapAdmin(ctx); err != nil {
		logger.Fatal("初始化管理员失败", zap.Error(err))
	}
	if err := svc.StockAlert.Start(); err != nil {
		logger.Fatal("启动低库存巡检失败", zap.Error(err))
	}

	// 8. 初始化路由
	engine := router.Setup(router.Options{
		Config:    cfg,
		Handler:   handler.NewHandler(svc),
		JWT:       jwtMgr,
		Blacklist: blacklist,
		Limiter:   limiter,
		Metrics:   m,
		Logger:    logger,
	})

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	svc.StockAlert.Stop()
	stop()
	catalog.Close()
	feed.Close()

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
