package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"maint-engine/backend/internal/cache"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/pkg/bus"
)

// changeNotifier 写入成功后发布实体变更事件
// 发布失败只记录日志，不影响已提交的写入
type changeNotifier struct {
	feed   bus.Feed
	logger *zap.Logger
}

func newChangeNotifier(feed bus.Feed, logger *zap.Logger) *changeNotifier {
	return &changeNotifier{feed: feed, logger: logger}
}

func publishChange[T any](ctx context.Context, n *changeNotifier, subject string, ch cache.Change[T]) {
	if n == nil || n.feed == nil {
		return
	}
	if err := n.feed.Publish(ctx, subject, ch); err != nil {
		n.logger.Warn("发布变更事件失败",
			zap.String("subject", subject),
			zap.String("id", ch.ID),
			zap.Error(err),
		)
	}
}

func (n *changeNotifier) machineSaved(ctx context.Context, m *model.Machine, created bool) {
	op := cache.OpModified
	if created {
		op = cache.OpAdded
	}
	publishChange(ctx, n, bus.SubjectMachinesChanged, cache.NewChange(op, m.MachineID, m))
}

func (n *changeNotifier) machineRemoved(ctx context.Context, id string) {
	publishChange(ctx, n, bus.SubjectMachinesChanged, cache.NewChange[model.Machine](cache.OpRemoved, id, nil))
}

func (n *changeNotifier) partSaved(ctx context.Context, p *model.Part, created bool) {
	op := cache.OpModified
	if created {
		op = cache.OpAdded
	}
	publishChange(ctx, n, bus.SubjectPartsChanged, cache.NewChange(op, p.PartID, p))
}

func (n *changeNotifier) partRemoved(ctx context.Context, id string) {
	publishChange(ctx, n, bus.SubjectPartsChanged, cache.NewChange[model.Part](cache.OpRemoved, id, nil))
}

func (n *changeNotifier) technicianSaved(ctx context.Context, t *model.Technician, created bool) {
	op := cache.OpModified
	if created {
		op = cache.OpAdded
	}
	publishChange(ctx, n, bus.SubjectTechniciansChanged, cache.NewChange(op, t.Username, t))
}

func (n *changeNotifier) technicianRemoved(ctx context.Context, username string) {
	publishChange(ctx, n, bus.SubjectTechniciansChanged, cache.NewChange[model.Technician](cache.OpRemoved, username, nil))
}

// stockChanged 库存变动提交后回读备件并发布
func (n *changeNotifier) stockChanged(ctx context.Context, parts interface {
	GetByIDs(ctx context.Context, ids []string) ([]model.Part, error)
}, applied []model.StockDelta) {
	if len(applied) == 0 || n == nil || n.feed == nil {
		return
	}
	ids := make([]string, 0, len(applied))
	for _, d := range applied {
		ids = append(ids, d.PartID)
	}
	fresh, err := parts.GetByIDs(ctx, ids)
	if err != nil {
		n.logger.Warn("回读备件失败，内存视图可能滞后", zap.Error(err))
		return
	}
	for i := range fresh {
		n.partSaved(ctx, &fresh[i], false)
	}
}

// StockLowEvent 低库存告警事件
type StockLowEvent struct {
	PartID      string    `json:"part_id"`
	Description string    `json:"description"`
	Stock       int       `json:"stock"`
	MinStock    int       `json:"min_stock"`
	At          time.Time `json:"at"`
}

func (n *changeNotifier) stockLow(ctx context.Context, p *model.Part, at time.Time) {
	if n == nil || n.feed == nil {
		return
	}
	ev := StockLowEvent{PartID: p.PartID, Description: p.Description, Stock: p.Stock, MinStock: p.MinStock, At: at}
	if err := n.feed.Publish(ctx, bus.SubjectStockLow, ev); err != nil {
		n.logger.Warn("发布低库存告警失败", zap.String("part_id", p.PartID), zap.Error(err))
	}
}
