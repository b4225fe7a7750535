package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	pkgerrors "maint-engine/backend/pkg/errors"
)

// ── 服务请求模块业务错误 ──

var (
	ErrRequestNotFound   = errors.New("服务请求不存在")
	ErrRequestNotPending = errors.New("服务请求已处理")
	ErrRequestForbidden  = errors.New("只能操作本人提交的请求")
)

// RequestService 服务请求业务接口
type RequestService interface {
	Submit(ctx context.Context, viewer Viewer, req *dto.SubmitServiceRequest) (*dto.ServiceRequestResponse, error)
	Get(ctx context.Context, viewer Viewer, id string) (*dto.ServiceRequestResponse, error)
	// List 按可见范围列出，最新的在前
	List(ctx context.Context, viewer Viewer) ([]dto.ServiceRequestResponse, error)
	Reject(ctx context.Context, viewer Viewer, id string) (*dto.ServiceRequestResponse, error)
	// Cancel 提交人撤回仍为 Pending 的请求
	Cancel(ctx context.Context, viewer Viewer, id string) (*dto.ServiceRequestResponse, error)
	// Convert 转为纠正性工单并在同一事务内审批请求
	Convert(ctx context.Context, viewer Viewer, id string, req *dto.ConvertServiceRequest) (*dto.WorkOrderResponse, error)
}

type requestService struct {
	repo    *repository.Repository
	catalog Catalog
	orders  *workOrderService
	clock   Clock
	logger  *zap.Logger
}

// NewRequestService 创建 RequestService 实例
func NewRequestService(d Deps) RequestService {
	return newRequestService(d, newWorkOrderService(d))
}

func newRequestService(d Deps, orders *workOrderService) *requestService {
	return &requestService{
		repo:    d.Repo,
		catalog: d.Catalog,
		orders:  orders,
		clock:   d.clock(),
		logger:  d.Logger,
	}
}

// ────────────────────── Submit ──────────────────────

func (s *requestService) Submit(ctx context.Context, viewer Viewer, req *dto.SubmitServiceRequest) (*dto.ServiceRequestResponse, error) {
	description := strings.TrimSpace(req.Description)
	if req.MachineID == "" {
		return nil, pkgerrors.NewValidation("machine_id", "必须选择设备")
	}
	if description == "" {
		return nil, pkgerrors.NewValidation("description", "必须填写问题描述")
	}
	if !VisibleScope(viewer).Machine(&model.Machine{MachineID: req.MachineID}) {
		return nil, pkgerrors.NewNotFound("machine", req.MachineID)
	}

	ids, err := s.repo.Request.ListIDs(ctx)
	if err != nil {
		s.logger.Error("查询请求编号失败", zap.Error(err))
		return nil, err
	}
	id, err := NextRequestID(ids)
	if err != nil {
		return nil, err
	}

	r := &model.Request{
		RequestID:   id,
		MachineID:   req.MachineID,
		Description: description,
		Requester:   viewer.Username,
		Status:      model.RequestStatusPending,
	}
	r.Stamp(viewer.Username, s.clock.Now(), true)
	if err := s.repo.Request.Create(ctx, r); err != nil {
		s.logger.Error("创建服务请求失败", zap.String("request_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("收到服务请求",
		zap.String("request_id", id),
		zap.String("machine_id", r.MachineID),
		zap.String("requester", r.Requester),
	)
	return s.single(ctx, r)
}

// ────────────────────── Get / List ──────────────────────

func (s *requestService) Get(ctx context.Context, viewer Viewer, id string) (*dto.ServiceRequestResponse, error) {
	r, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.single(ctx, r)
}

func (s *requestService) List(ctx context.Context, viewer Viewer) ([]dto.ServiceRequestResponse, error) {
	scope := VisibleScope(viewer)
	reqs, err := s.repo.Request.List(ctx, repository.RequestFilter{
		Requester:  scope.Requester(),
		MachineIDs: scope.RequestMachineIDs(),
	})
	if err != nil {
		s.logger.Error("查询服务请求失败", zap.Error(err))
		return nil, err
	}
	return requestResponses(ctx, s.repo, s.catalog, reqs)
}

// ────────────────────── Reject / Cancel ──────────────────────

func (s *requestService) Reject(ctx context.Context, viewer Viewer, id string) (*dto.ServiceRequestResponse, error) {
	return s.close(ctx, viewer, id, model.RequestStatusRejected)
}

func (s *requestService) Cancel(ctx context.Context, viewer Viewer, id string) (*dto.ServiceRequestResponse, error) {
	return s.close(ctx, viewer, id, model.RequestStatusCancelled)
}

func (s *requestService) close(ctx context.Context, viewer Viewer, id, status string) (*dto.ServiceRequestResponse, error) {
	r, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.RequestStatusPending {
		return nil, ErrRequestNotPending
	}
	if status == model.RequestStatusCancelled && viewer.Role == model.RoleOperator && r.Requester != viewer.Username {
		return nil, ErrRequestForbidden
	}

	r.Status = status
	r.Stamp(viewer.Username, s.clock.Now(), false)
	if err := s.repo.Request.Update(ctx, r); err != nil {
		s.logger.Error("更新服务请求失败", zap.String("request_id", id), zap.Error(err))
		return nil, err
	}
	return s.single(ctx, r)
}

// ────────────────────── Convert ──────────────────────

func (s *requestService) Convert(ctx context.Context, viewer Viewer, id string, req *dto.ConvertServiceRequest) (*dto.WorkOrderResponse, error) {
	r, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.RequestStatusPending {
		return nil, ErrRequestNotPending
	}
	if req.LeadTechnician == "" {
		return nil, pkgerrors.NewValidation("lead_technician", "必须指定负责人")
	}
	if strings.TrimSpace(req.FailureType) == "" {
		return nil, pkgerrors.NewValidation("failure_type", "纠正性工单必须填写故障类型")
	}

	now := s.clock.Now()
	primary := calendarDate(now, s.orders.loc)
	if req.PrimaryDate != "" {
		d, err := time.Parse(dto.DateLayout, req.PrimaryDate)
		if err != nil {
			return nil, pkgerrors.NewValidation("primary_date", "日期格式应为 YYYY-MM-DD")
		}
		primary = d
	}

	requestID := r.RequestID
	order := &model.WorkOrder{
		OrderID:            req.OrderID,
		MachineID:          r.MachineID,
		Type:               model.WorkOrderTypeCorrective,
		Description:        r.Description,
		Status:             model.WorkOrderStatusPending,
		Requester:          r.Requester,
		LeadTechnician:     req.LeadTechnician,
		SupportTechnicians: dedupe(req.SupportTechnicians, req.LeadTechnician),
		Technicians:        technicianUnion(req.LeadTechnician, req.SupportTechnicians),
		FailureType:        req.FailureType,
		PrimaryDate:        &primary,
		WorkIntervals:      []model.WorkInterval{},
		PartsUsed:          []model.PartUsage{},
		SourceRequestID:    &requestID,
	}
	order.Stamp(viewer.Username, now, true)

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if order.OrderID == "" {
			next, err := s.orders.nextID(ctx, tx)
			if err != nil {
				return err
			}
			order.OrderID = next
		} else {
			if !ValidWorkOrderID(order.OrderID) {
				return pkgerrors.NewValidation("order_id", "工单号格式应为 MA-YY-NNNN")
			}
			_, err := tx.WorkOrder.GetByID(ctx, order.OrderID)
			if err == nil {
				return ErrWorkOrderIDExists
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := tx.WorkOrder.Create(ctx, order); err != nil {
			return err
		}
		ok, err := tx.Request.ApproveIfPending(ctx, requestID, order.OrderID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRequestNotPending
		}
		return nil
	})
	if err != nil {
		if !pkgerrors.IsValidation(err) && !errors.Is(err, ErrWorkOrderIDExists) && !errors.Is(err, ErrRequestNotPending) {
			s.logger.Error("服务请求转工单失败", zap.String("request_id", requestID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("服务请求已转为工单",
		zap.String("request_id", requestID),
		zap.String("order_id", order.OrderID),
	)
	return s.orders.toResponse(order, now), nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *requestService) load(ctx context.Context, viewer Viewer, id string) (*model.Request, error) {
	r, err := s.repo.Request.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		s.logger.Error("查询服务请求失败", zap.String("request_id", id), zap.Error(err))
		return nil, err
	}
	if !VisibleScope(viewer).Request(r) {
		return nil, ErrRequestNotFound
	}
	return r, nil
}

func (s *requestService) single(ctx context.Context, r *model.Request) (*dto.ServiceRequestResponse, error) {
	out, err := requestResponses(ctx, s.repo, s.catalog, []model.Request{*r})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// requestResponses 构造请求响应，批量读取关联工单以得到显示状态
func requestResponses(ctx context.Context, repo *repository.Repository, catalog Catalog, reqs []model.Request) ([]dto.ServiceRequestResponse, error) {
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if r.WorkOrderID != nil {
			ids = append(ids, *r.WorkOrderID)
		}
	}
	status := make(map[string]string, len(ids))
	if len(ids) > 0 {
		orders, err := repo.WorkOrder.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			status[o.OrderID] = o.Status
		}
	}

	out := make([]dto.ServiceRequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, dto.ServiceRequestResponse{
			RequestID:     r.RequestID,
			MachineID:     r.MachineID,
			MachineName:   machineName(catalog, r.MachineID),
			Description:   r.Description,
			Requester:     r.Requester,
			Status:        r.Status,
			DisplayStatus: DisplayStatus(&r, status),
			WorkOrderID:   r.WorkOrderID,
			CreatedAt:     r.CreatedAt.Format(dto.TimeLayout),
		})
	}
	return out, nil
}

// DisplayStatus 请求的显示状态：关联工单存在时取工单状态，已审批但工单缺失时为 Planning
func DisplayStatus(r *model.Request, orderStatus map[string]string) string {
	if r.WorkOrderID != nil {
		if st, ok := orderStatus[*r.WorkOrderID]; ok {
			return st
		}
	}
	if r.Status == model.RequestStatusApproved {
		return model.RequestStatusPlanning
	}
	return r.Status
}
