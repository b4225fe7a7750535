package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	pkgerrors "maint-engine/backend/pkg/errors"
)

// KPIService 指标与看板统计业务接口
type KPIService interface {
	KPIs(ctx context.Context, viewer Viewer, req *dto.KPIRequest) (*dto.KPIResponse, error)
	DashboardStats(ctx context.Context, viewer Viewer, req *dto.PeriodRequest) (*dto.DashboardStatsResponse, error)
}

type kpiService struct {
	repo    *repository.Repository
	catalog Catalog
	engine  *KPIEngine
	cost    *CostCalculator
	period  periodResolver
	logger  *zap.Logger
}

// NewKPIService 创建 KPIService 实例
func NewKPIService(d Deps) KPIService {
	cost := NewCostCalculator(d.Catalog, d.Engine.MonthlyWorkHours)
	loc := d.Engine.Location()
	return &kpiService{
		repo:    d.Repo,
		catalog: d.Catalog,
		engine:  NewKPIEngine(NewUptimeCalculator(loc, d.Engine.DefaultDayHours), cost),
		cost:    cost,
		period:  periodResolver{clock: d.clock(), loc: loc},
		logger:  d.Logger,
	}
}

// periodResolver 以注入的时钟与引擎时区解析统计周期
type periodResolver struct {
	clock Clock
	loc   *time.Location
}

func (r periodResolver) resolve(req *dto.PeriodRequest) (Period, error) {
	p, err := ResolvePeriod(req.Period, req.Date, req.Year, req.Month, r.clock.Now(), r.loc)
	if err != nil {
		return Period{}, pkgerrors.NewValidation("period", err.Error())
	}
	return p, nil
}

// ────────────────────── KPIs ──────────────────────

func (s *kpiService) KPIs(ctx context.Context, viewer Viewer, req *dto.KPIRequest) (*dto.KPIResponse, error) {
	p, err := s.period.resolve(&req.PeriodRequest)
	if err != nil {
		return nil, err
	}
	scope := VisibleScope(viewer)

	orders, err := s.ordersIn(ctx, scope.Narrow(req.MachineID), p)
	if err != nil {
		return nil, err
	}
	machines := s.machinesIn(scope, req.MachineID)

	r := s.engine.Compute(orders, machines, p.From, p.To)
	return &dto.KPIResponse{
		From:            p.From.Format(dto.DateLayout),
		To:              p.To.Format(dto.DateLayout),
		MachineID:       req.MachineID,
		MTBFDays:        kpiValue(r.MTBFDays),
		MTTRHours:       kpiValue(r.MTTRHours),
		AvailabilityPct: kpiValue(r.AvailabilityPct),
		PreventiveRatio: kpiValue(r.PreventiveRatioPct),
		AverageCost:     kpiValue(r.AverageCost),
		ScheduledHours:  r.Scheduled.Hours(),
		DowntimeHours:   r.Downtime.Hours(),
	}, nil
}

// ────────────────────── DashboardStats ──────────────────────

func (s *kpiService) DashboardStats(ctx context.Context, viewer Viewer, req *dto.PeriodRequest) (*dto.DashboardStatsResponse, error) {
	p, err := s.period.resolve(req)
	if err != nil {
		return nil, err
	}
	scope := VisibleScope(viewer)

	orders, err := s.ordersIn(ctx, scope.OrderMachineIDs(), p)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.Request.List(ctx, repository.RequestFilter{
		Requester:  scope.Requester(),
		MachineIDs: scope.RequestMachineIDs(),
		Status:     model.RequestStatusPending,
	})
	if err != nil {
		s.logger.Error("查询待处理请求失败", zap.Error(err))
		return nil, err
	}

	stats := &dto.DashboardStatsResponse{
		From:            p.From.Format(dto.DateLayout),
		To:              p.To.Format(dto.DateLayout),
		MachineCount:    len(s.machinesIn(scope, "")),
		PendingRequests: len(pending),
	}

	var executed, planned CostBreakdown
	for i := range orders {
		o := &orders[i]
		if o.Status == model.WorkOrderStatusCancelled {
			continue
		}
		switch o.Type {
		case model.WorkOrderTypePreventive:
			stats.PreventiveCount++
		case model.WorkOrderTypeCorrective:
			stats.CorrectiveCount++
		}
		c := s.cost.Order(o)
		planned = planned.Add(c)
		if o.Status == model.WorkOrderStatusCompleted {
			executed = executed.Add(c)
		}
	}
	stats.ExecutedCost = executed.Total()
	stats.PlannedCost = planned.Total()
	return stats, nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *kpiService) ordersIn(ctx context.Context, machineIDs []string, p Period) ([]model.WorkOrder, error) {
	orders, err := ordersInPeriod(ctx, s.repo, machineIDs, p)
	if err != nil {
		s.logger.Error("查询统计周期内工单失败", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

// ordersInPeriod 主日期落在周期内的工单
func ordersInPeriod(ctx context.Context, repo *repository.Repository, machineIDs []string, p Period) ([]model.WorkOrder, error) {
	from, to := p.From, p.To
	orders, _, err := repo.WorkOrder.List(ctx, repository.WorkOrderFilter{
		MachineIDs: machineIDs,
		From:       &from,
		To:         &to,
	})
	return orders, err
}

// machinesIn 可见范围内参与可用率计算的设备，machineID 非空时只取该设备
func (s *kpiService) machinesIn(scope Scope, machineID string) []model.Machine {
	all := s.catalog.AllMachines()
	out := make([]model.Machine, 0, len(all))
	for i := range all {
		if machineID != "" && all[i].MachineID != machineID {
			continue
		}
		if scope.Machine(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out
}

func kpiValue(m Metric) dto.KPIValue {
	v, ok := m.Value()
	if !ok {
		return dto.KPIValue{Display: m.String()}
	}
	return dto.KPIValue{Defined: true, Value: &v, Display: m.String()}
}
