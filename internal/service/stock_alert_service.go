package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"maint-engine/backend/internal/repository"
	"maint-engine/backend/pkg/metrics"
)

const stockSweepTimeout = time.Minute

// StockAlertService 定时巡检低库存备件（stock <= min_stock）
// 巡检结果写入指标并逐个发布告警事件
type StockAlertService struct {
	repo     *repository.Repository
	notify   *changeNotifier
	metrics  *metrics.Metrics
	clock    Clock
	cronExpr string
	loc      *time.Location
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewStockAlertService 创建低库存巡检
func NewStockAlertService(d Deps) *StockAlertService {
	return &StockAlertService{
		repo:     d.Repo,
		notify:   newChangeNotifier(d.Feed, d.Logger),
		metrics:  d.Metrics,
		clock:    d.clock(),
		cronExpr: d.Engine.LowStockSweepCron,
		loc:      d.Engine.Location(),
		logger:   d.Logger,
	}
}

// Sweep 执行一次巡检，返回低库存备件数
func (s *StockAlertService) Sweep(ctx context.Context) (int, error) {
	parts, err := s.repo.Part.ListLowStock(ctx)
	if err != nil {
		s.logger.Error("低库存巡检失败", zap.Error(err))
		return 0, err
	}
	s.metrics.SetLowStock(len(parts))

	now := s.clock.Now()
	for i := range parts {
		s.notify.stockLow(ctx, &parts[i], now)
	}
	if len(parts) > 0 {
		s.logger.Warn("存在低库存备件", zap.Int("count", len(parts)))
	}
	return len(parts), nil
}

// Start 按配置的 cron 表达式启动巡检，表达式为空时不启动
func (s *StockAlertService) Start() error {
	if s.cronExpr == "" {
		s.logger.Info("低库存巡检未启用")
		return nil
	}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), stockSweepTimeout)
		defer cancel()
		_, _ = s.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("低库存巡检表达式无效 %q: %w", s.cronExpr, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("低库存巡检已启动", zap.String("cron", s.cronExpr))
	return nil
}

// Stop 停止调度并等待正在执行的巡检结束
func (s *StockAlertService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
