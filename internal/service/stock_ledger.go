package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	pkgerrors "maint-engine/backend/pkg/errors"
	"maint-engine/backend/pkg/metrics"
)

// ── 库存台账 ──
//
// 库存变动分两步：
//  1. 以最新持久化库存预校验全部变动，任一备件不足即返回 InsufficientStockError，不写入
//  2. 在一个事务内以条件更新 stock = stock + delta (stock + delta >= 0) 写入
// 并发竞争导致第 2 步条件不满足时整个事务回滚

// ConsumptionDeltas 工单完成时的出库变动，每个备件扣减其用量
func ConsumptionDeltas(usage []model.PartUsage) []model.StockDelta {
	totals := make(map[string]int)
	for _, u := range usage {
		if u.Quantity > 0 {
			totals[u.PartID] -= u.Quantity
		}
	}
	return sortedDeltas(totals)
}

// ReconcileDeltas 修改已完成工单的备件清单时的库存变动
// 对新旧清单中出现的每个备件 delta = 旧用量 - 新用量
func ReconcileDeltas(oldUsage, newUsage []model.PartUsage) []model.StockDelta {
	totals := make(map[string]int)
	for _, u := range oldUsage {
		totals[u.PartID] += u.Quantity
	}
	for _, u := range newUsage {
		totals[u.PartID] -= u.Quantity
	}
	return sortedDeltas(totals)
}

func sortedDeltas(totals map[string]int) []model.StockDelta {
	out := make([]model.StockDelta, 0, len(totals))
	for id, d := range totals {
		if d != 0 {
			out = append(out, model.StockDelta{PartID: id, Delta: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartID < out[j].PartID })
	return out
}

// StockLedger 库存台账
type StockLedger struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewStockLedger 创建库存台账，m 可为 nil
func NewStockLedger(m *metrics.Metrics, logger *zap.Logger) *StockLedger {
	return &StockLedger{metrics: m, logger: logger}
}

// Apply 预校验并应用一组变动，返回实际应用的变动
// 不存在的备件跳过并记录告警；repo 可以是事务内的聚合
func (l *StockLedger) Apply(ctx context.Context, repo *repository.Repository, deltas []model.StockDelta) ([]model.StockDelta, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(deltas))
	for _, d := range deltas {
		ids = append(ids, d.PartID)
	}
	parts, err := repo.Part.GetByIDs(ctx, ids)
	if err != nil {
		l.logger.Error("读取备件库存失败", zap.Error(err))
		return nil, err
	}
	stock := make(map[string]int, len(parts))
	for _, p := range parts {
		stock[p.PartID] = p.Stock
	}

	applied := make([]model.StockDelta, 0, len(deltas))
	for _, d := range deltas {
		current, ok := stock[d.PartID]
		if !ok {
			l.logger.Warn("备件不存在，跳过库存变动", zap.String("part_id", d.PartID), zap.Int("delta", d.Delta))
			continue
		}
		if current+d.Delta < 0 {
			l.metrics.StockRejected()
			return nil, &pkgerrors.InsufficientStockError{PartID: d.PartID, Stock: current, Required: -d.Delta}
		}
		applied = append(applied, d)
	}

	if err := repo.Part.ApplyStockDeltas(ctx, applied); err != nil {
		if pkgerrors.IsInsufficientStock(err) {
			l.metrics.StockRejected()
		}
		return nil, err
	}
	return applied, nil
}

// ApplyDelta 对单个备件应用变动，stock + delta < 0 时失败
func (l *StockLedger) ApplyDelta(ctx context.Context, repo *repository.Repository, partID string, delta int) (*model.Part, error) {
	part, err := repo.Part.GetByID(ctx, partID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NewNotFound("part", partID)
		}
		return nil, err
	}
	if delta == 0 {
		return part, nil
	}
	if part.Stock+delta < 0 {
		l.metrics.StockRejected()
		return nil, &pkgerrors.InsufficientStockError{PartID: partID, Stock: part.Stock, Required: -delta}
	}
	if err := repo.Part.ApplyStockDeltas(ctx, []model.StockDelta{{PartID: partID, Delta: delta}}); err != nil {
		if pkgerrors.IsInsufficientStock(err) {
			l.metrics.StockRejected()
		}
		return nil, err
	}
	l.Record([]model.StockDelta{{PartID: partID, Delta: delta}})
	return repo.Part.GetByID(ctx, partID)
}

// Record 提交后记录出入库指标
func (l *StockLedger) Record(applied []model.StockDelta) {
	for _, d := range applied {
		l.metrics.StockDelta(d.Delta)
	}
}
