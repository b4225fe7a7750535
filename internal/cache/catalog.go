package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	"maint-engine/backend/pkg/bus"
)

// Catalog 设备 / 备件 / 人员的内存视图
// 读取到的数据是快照，写入路径始终以数据库为准
type Catalog struct {
	Machines    *Index[model.Machine]
	Parts       *Index[model.Part]
	Technicians *Index[model.Technician]

	instance string
	logger   *zap.Logger

	mu      sync.Mutex
	closers []io.Closer
}

// NewCatalog 创建空的 Catalog
func NewCatalog(logger *zap.Logger) *Catalog {
	return &Catalog{
		Machines:    NewIndex(func(m *model.Machine) string { return m.MachineID }),
		Parts:       NewIndex(func(p *model.Part) string { return p.PartID }),
		Technicians: NewIndex(func(t *model.Technician) string { return t.Username }),
		instance:    uuid.NewString()[:8],
		logger:      logger,
	}
}

// Load 从数据库全量加载
func (c *Catalog) Load(ctx context.Context, repo *repository.Repository) error {
	machines, err := repo.Machine.List(ctx)
	if err != nil {
		return fmt.Errorf("加载设备失败: %w", err)
	}
	parts, err := repo.Part.List(ctx, "")
	if err != nil {
		return fmt.Errorf("加载备件失败: %w", err)
	}
	techs, err := repo.Technician.List(ctx)
	if err != nil {
		return fmt.Errorf("加载人员失败: %w", err)
	}

	c.Machines.Replace(machines)
	c.Parts.Replace(parts)
	c.Technicians.Replace(techs)

	c.logger.Info("内存视图加载完成",
		zap.Int("machines", len(machines)),
		zap.Int("parts", len(parts)),
		zap.Int("technicians", len(techs)),
	)
	return nil
}

// Subscribe 订阅三类实体的变更事件
func (c *Catalog) Subscribe(ctx context.Context, feed bus.Feed) error {
	if err := subscribeIndex(ctx, c, feed, bus.SubjectMachinesChanged, "machines", c.Machines); err != nil {
		return err
	}
	if err := subscribeIndex(ctx, c, feed, bus.SubjectPartsChanged, "parts", c.Parts); err != nil {
		return err
	}
	return subscribeIndex(ctx, c, feed, bus.SubjectTechniciansChanged, "technicians", c.Technicians)
}

func subscribeIndex[T any](ctx context.Context, c *Catalog, feed bus.Feed, subject, kind string, ix *Index[T]) error {
	durable := fmt.Sprintf("catalog-%s-%s", kind, c.instance)
	closer, err := feed.Subscribe(ctx, subject, durable, func(_ context.Context, data []byte) error {
		var ch Change[T]
		if err := json.Unmarshal(data, &ch); err != nil {
			// 无法解析的事件重投也无意义，直接丢弃
			c.logger.Warn("丢弃无法解析的变更事件", zap.String("subject", subject), zap.Error(err))
			return nil
		}
		ix.Apply(ch)
		return nil
	})
	if err != nil {
		return fmt.Errorf("订阅 %s 失败: %w", subject, err)
	}

	c.mu.Lock()
	c.closers = append(c.closers, closer)
	c.mu.Unlock()
	return nil
}

// Close 取消全部订阅
func (c *Catalog) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cl := range c.closers {
		_ = cl.Close()
	}
	c.closers = nil
}

// ── 查询快捷方法 ──

// Machine 按 ID 查询设备
func (c *Catalog) Machine(id string) (*model.Machine, bool) {
	m, ok := c.Machines.Get(id)
	if !ok {
		return nil, false
	}
	return &m, true
}

// Part 按 ID 查询备件
func (c *Catalog) Part(id string) (*model.Part, bool) {
	p, ok := c.Parts.Get(id)
	if !ok {
		return nil, false
	}
	return &p, true
}

// Technician 按用户名查询人员
func (c *Catalog) Technician(username string) (*model.Technician, bool) {
	t, ok := c.Technicians.Get(username)
	if !ok {
		return nil, false
	}
	return &t, true
}

// AllMachines 全部设备
func (c *Catalog) AllMachines() []model.Machine {
	return c.Machines.List()
}

// AllParts 全部备件
func (c *Catalog) AllParts() []model.Part {
	return c.Parts.List()
}
