package handler

import (
	"maint-engine/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	WorkOrder  *WorkOrderHandler
	Request    *RequestHandler
	KPI        *KPIHandler
	Machine    *MachineHandler
	Part       *PartHandler
	Supplier   *SupplierHandler
	Technician *TechnicianHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	viewer := ViewerFunc(svc.Viewer)
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, svc.Technician),
		WorkOrder:  NewWorkOrderHandler(svc.WorkOrder, viewer),
		Request:    NewRequestHandler(svc.Request, viewer),
		KPI:        NewKPIHandler(svc.KPI, viewer),
		Machine:    NewMachineHandler(svc.Machine, viewer),
		Part:       NewPartHandler(svc.Part, viewer),
		Supplier:   NewSupplierHandler(svc.Supplier, viewer),
		Technician: NewTechnicianHandler(svc.Technician, viewer),
		Export:     NewExportHandler(svc.Export, svc.Calendar, viewer),
	}
}
