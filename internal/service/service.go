package service

import (
	"go.uber.org/zap"

	"maint-engine/backend/config"
	"maint-engine/backend/internal/repository"
	"maint-engine/backend/pkg/bus"
	"maint-engine/backend/pkg/jwt"
	"maint-engine/backend/pkg/metrics"
)

// Deps 各业务服务共用的依赖
type Deps struct {
	Repo    *repository.Repository
	Catalog Catalog
	Feed    bus.Feed         // 可为 nil，此时不发布变更事件
	Metrics *metrics.Metrics // 可为 nil
	Clock   Clock            // nil 时使用系统时间
	Engine  config.EngineConfig
	Logger  *zap.Logger
}

func (d Deps) clock() Clock {
	if d.Clock == nil {
		return SystemClock()
	}
	return d.Clock
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	WorkOrder  WorkOrderService
	Request    RequestService
	KPI        KPIService
	Machine    MachineService
	Part       PartService
	Supplier   SupplierService
	Technician TechnicianService
	Export     ExportService
	Calendar   CalendarService
	StockAlert *StockAlertService

	catalog Catalog
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	d Deps,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
) *Service {
	orders := newWorkOrderService(d)
	return &Service{
		Auth:       NewAuthService(cfg, d.Repo, jwtMgr, blacklist, d.Logger),
		WorkOrder:  orders,
		Request:    newRequestService(d, orders),
		KPI:        NewKPIService(d),
		Machine:    NewMachineService(d),
		Part:       NewPartService(d),
		Supplier:   NewSupplierService(d),
		Technician: NewTechnicianService(d),
		Export:     NewExportService(d),
		Calendar:   NewCalendarService(d),
		StockAlert: NewStockAlertService(d),
		catalog:    d.Catalog,
	}
}

// Viewer 由令牌中的用户名与角色得到当前操作人
func (s *Service) Viewer(username, role string) Viewer {
	return ResolveViewer(s.catalog, username, role)
}
