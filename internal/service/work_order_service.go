package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	pkgerrors "maint-engine/backend/pkg/errors"
	"maint-engine/backend/pkg/metrics"
)

// ── 工单模块业务错误 ──

var (
	ErrWorkOrderNotFound = errors.New("工单不存在")
	ErrWorkOrderIDExists = errors.New("工单号已存在")
	ErrInvalidTransition = errors.New("当前工单状态不允许该操作")
)

// ── 状态机 ──

var transitions = map[string][]string{
	model.WorkOrderStatusPending:    {model.WorkOrderStatusInProgress, model.WorkOrderStatusCancelled},
	model.WorkOrderStatusInProgress: {model.WorkOrderStatusPaused, model.WorkOrderStatusCompleted, model.WorkOrderStatusCancelled},
	model.WorkOrderStatusPaused:     {model.WorkOrderStatusInProgress, model.WorkOrderStatusCompleted, model.WorkOrderStatusCancelled},
}

// CanTransition 状态 from 是否可以直接转到 to
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// WorkOrderService 工单业务接口
type WorkOrderService interface {
	NextID(ctx context.Context) (*dto.NextIDResponse, error)
	Create(ctx context.Context, viewer Viewer, req *dto.SaveWorkOrderRequest) (*dto.WorkOrderResponse, error)
	// Update 整表单保存，按新旧状态重新计算作业区间
	Update(ctx context.Context, viewer Viewer, id string, req *dto.SaveWorkOrderRequest) (*dto.WorkOrderResponse, error)
	Get(ctx context.Context, viewer Viewer, id string) (*dto.WorkOrderResponse, error)
	List(ctx context.Context, viewer Viewer, req *dto.WorkOrderListRequest) (*dto.PageResponse[dto.WorkOrderResponse], error)
	Delete(ctx context.Context, viewer Viewer, id string) error

	Start(ctx context.Context, viewer Viewer, id string, req *dto.StartWorkOrderRequest) (*dto.WorkOrderResponse, error)
	Pause(ctx context.Context, viewer Viewer, id string) (*dto.WorkOrderResponse, error)
	Resume(ctx context.Context, viewer Viewer, id string, req *dto.StartWorkOrderRequest) (*dto.WorkOrderResponse, error)
	Complete(ctx context.Context, viewer Viewer, id string) (*dto.WorkOrderResponse, error)
	Cancel(ctx context.Context, viewer Viewer, id string) (*dto.WorkOrderResponse, error)
	// UpdatePartsUsed 替换备件清单，已完成工单按差额调整库存
	UpdatePartsUsed(ctx context.Context, viewer Viewer, id string, req *dto.UpdatePartsUsedRequest) (*dto.WorkOrderResponse, error)

	Board(ctx context.Context, viewer Viewer) (*dto.BoardResponse, error)
	Assigned(ctx context.Context, viewer Viewer) ([]dto.WorkOrderResponse, error)
}

type workOrderService struct {
	repo    *repository.Repository
	catalog Catalog
	ledger  *StockLedger
	cost    *CostCalculator
	notify  *changeNotifier
	metrics *metrics.Metrics
	clock   Clock
	loc     *time.Location
	logger  *zap.Logger
}

// NewWorkOrderService 创建 WorkOrderService 实例
func NewWorkOrderService(d Deps) WorkOrderService {
	return newWorkOrderService(d)
}

func newWorkOrderService(d Deps) *workOrderService {
	return &workOrderService{
		repo:    d.Repo,
		catalog: d.Catalog,
		ledger:  NewStockLedger(d.Metrics, d.Logger),
		cost:    NewCostCalculator(d.Catalog, d.Engine.MonthlyWorkHours),
		notify:  newChangeNotifier(d.Feed, d.Logger),
		metrics: d.Metrics,
		clock:   d.clock(),
		loc:     d.Engine.Location(),
		logger:  d.Logger,
	}
}

// ────────────────────── NextID ──────────────────────

func (s *workOrderService) NextID(ctx context.Context) (*dto.NextIDResponse, error) {
	id, err := s.nextID(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	return &dto.NextIDResponse{OrderID: id}, nil
}

func (s *workOrderService) nextID(ctx context.Context, repo *repository.Repository) (string, error) {
	now := s.clock.Now().In(s.loc)
	existing, err := repo.WorkOrder.ListIDsByPrefix(ctx, WorkOrderPrefix(now))
	if err != nil {
		s.logger.Error("查询工单号失败", zap.Error(err))
		return "", err
	}
	return NextWorkOrderID(now, existing)
}

// ────────────────────── Create / Update ──────────────────────

func (s *workOrderService) Create(ctx context.Context, viewer Viewer, req *dto.SaveWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	if !ValidWorkOrderID(req.OrderID) {
		return nil, pkgerrors.NewValidation("order_id", "工单号格式应为 MA-YY-NNNN")
	}
	_, err := s.repo.WorkOrder.GetByID(ctx, req.OrderID)
	if err == nil {
		return nil, ErrWorkOrderIDExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询工单失败", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, err
	}

	order := &model.WorkOrder{OrderID: req.OrderID, Status: model.WorkOrderStatusPending}
	return s.save(ctx, viewer, order, req, true)
}

func (s *workOrderService) Update(ctx context.Context, viewer Viewer, id string, req *dto.SaveWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if req.OrderID != id {
		return nil, pkgerrors.NewValidation("order_id", "工单号不可修改")
	}
	return s.save(ctx, viewer, order, req, false)
}

// save 整表单保存：校验、重算作业区间、按需调整库存，最后写入
func (s *workOrderService) save(ctx context.Context, viewer Viewer, order *model.WorkOrder, req *dto.SaveWorkOrderRequest, creating bool) (*dto.WorkOrderResponse, error) {
	now := s.clock.Now()
	oldStatus := order.Status
	oldParts := append([]model.PartUsage(nil), order.PartsUsed...)

	newStatus := req.Status
	if newStatus == "" {
		newStatus = oldStatus
	}
	if err := validateSaveRequest(req, newStatus); err != nil {
		return nil, err
	}

	explicitSpan := req.StartTime != nil && req.EndTime != nil
	if oldStatus != newStatus && !CanTransition(oldStatus, newStatus) {
		// Pending 直接补录为 Completed 需要给出起止时间
		if !(oldStatus == model.WorkOrderStatusPending && newStatus == model.WorkOrderStatusCompleted && explicitSpan) {
			return nil, ErrInvalidTransition
		}
	}

	var primaryDate *time.Time
	if req.PrimaryDate != "" {
		d, err := time.Parse(dto.DateLayout, req.PrimaryDate)
		if err != nil {
			return nil, pkgerrors.NewValidation("primary_date", "日期格式应为 YYYY-MM-DD")
		}
		primaryDate = &d
	}

	order.MachineID = req.MachineID
	order.Type = req.Type
	order.Description = req.Description
	order.Requester = req.Requester
	order.LeadTechnician = req.LeadTechnician
	order.SupportTechnicians = dedupe(req.SupportTechnicians, req.LeadTechnician)
	order.Technicians = technicianUnion(req.LeadTechnician, req.SupportTechnicians)
	order.FailureType = req.FailureType
	order.MaintenanceType = req.MaintenanceType
	if primaryDate != nil {
		order.PrimaryDate = primaryDate
	}
	order.PartsUsed = partUsageFromDTO(req.PartsUsed)
	order.AdditionalCost = req.AdditionalCost
	if req.StartTime != nil {
		order.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		order.EndTime = req.EndTime
	}
	if order.StartTime != nil && order.EndTime != nil && !order.EndTime.After(*order.StartTime) {
		return nil, pkgerrors.NewValidation("end_time", "结束时间必须晚于开始时间")
	}
	if req.SourceRequestID != "" {
		src := req.SourceRequestID
		order.SourceRequestID = &src
	}

	// 重算作业区间
	if newStatus == model.WorkOrderStatusCompleted && explicitSpan {
		end := *req.EndTime
		order.WorkIntervals = []model.WorkInterval{{Start: *req.StartTime, End: &end}}
	} else if oldStatus != newStatus {
		if err := s.applyStatusChange(order, oldStatus, newStatus, req.StartTime, now); err != nil {
			return nil, err
		}
	}
	order.Status = newStatus

	var deltas []model.StockDelta
	switch {
	case newStatus == model.WorkOrderStatusCompleted && oldStatus != model.WorkOrderStatusCompleted:
		deltas = ConsumptionDeltas(order.PartsUsed)
	case newStatus == model.WorkOrderStatusCompleted:
		deltas = ReconcileDeltas(oldParts, order.PartsUsed)
	}

	approve := newStatus == model.WorkOrderStatusCompleted && oldStatus != model.WorkOrderStatusCompleted
	order.Stamp(viewer.Username, now, creating)
	if err := s.persist(ctx, order, creating, deltas, approve); err != nil {
		return nil, err
	}
	if oldStatus != newStatus {
		s.metrics.Transition(oldStatus, newStatus)
	}
	return s.toResponse(order, now), nil
}

// applyStatusChange 整表单保存时按 old→new 的状态变化开闭作业区间
func (s *workOrderService) applyStatusChange(order *model.WorkOrder, oldStatus, newStatus string, manual *time.Time, now time.Time) error {
	switch newStatus {
	case model.WorkOrderStatusInProgress:
		// 表单中的开始时间只在首次开始时作为手动开始时间
		if oldStatus != model.WorkOrderStatusPending {
			manual = nil
		}
		at, err := resolveStart(order, manual, now)
		if err != nil {
			return err
		}
		s.begin(order, oldStatus, at)
	case model.WorkOrderStatusPaused, model.WorkOrderStatusCancelled:
		closeInterval(order, now)
	case model.WorkOrderStatusCompleted:
		s.finish(order, now)
	}
	return nil
}

// ────────────────────── Get / List / Delete ──────────────────────

func (s *workOrderService) Get(ctx context.Context, viewer Viewer, id string) (*dto.WorkOrderResponse, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(order, s.clock.Now()), nil
}

func (s *workOrderService) List(ctx context.Context, viewer Viewer, req *dto.WorkOrderListRequest) (*dto.PageResponse[dto.WorkOrderResponse], error) {
	scope := VisibleScope(viewer)
	filter := repository.WorkOrderFilter{
		MachineIDs: scope.Narrow(req.MachineID),
		Type:       req.Type,
		Technician: req.Technician,
		Offset:     req.GetOffset(),
		Limit:      req.GetPageSize(),
	}
	if req.Status != "" {
		filter.Statuses = []string{req.Status}
	}
	var err error
	if filter.From, err = parseDateParam("from", req.From); err != nil {
		return nil, err
	}
	if filter.To, err = parseDateParam("to", req.To); err != nil {
		return nil, err
	}

	orders, total, err := s.repo.WorkOrder.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询工单列表失败", zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	items := make([]dto.WorkOrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, *s.toResponse(&orders[i], now))
	}
	return &dto.PageResponse[dto.WorkOrderResponse]{
		Items:    items,
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	}, nil
}

func (s *workOrderService) Delete(ctx context.Context, viewer Viewer, id string) error {
	if _, err := s.load(ctx, viewer, id); err != nil {
		return err
	}
	if err := s.repo.WorkOrder.Delete(ctx, id); err != nil {
		s.logger.Error("删除工单失败", zap.String("order_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 状态操作 ──────────────────────

func (s *workOrderService) Start(ctx context.Context, viewer Viewer, id string, req *dto.StartWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	return s.open(ctx, viewer, id, req, model.WorkOrderStatusPending, model.WorkOrderStatusPaused)
}

func (s *workOrderService) Resume(ctx context.Context, viewer Viewer, id string, req *dto.StartWorkOrderRequest) (*dto.WorkOrderResponse, error) {
	return s.open(ctx, viewer, id, req, model.WorkOrderStatusPaused)
}

// open 开始 / 恢复：需要负责人，打开新的作业区间
func (s *workOrderService) open(ctx context.Context, viewer Viewer, id string, req *dto.StartWorkOrderRequest, allowed ...string) (*dto.WorkOrderResponse, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !statusIn(order.Status, allowed) {
		return nil, ErrInvalidTransition
	}
	if order.LeadTechnician == "" {
		return nil, pkgerrors.NewValidation("lead_technician", "开始作业前必须指定负责人")
	}

	now := s.clock.Now()
	var manual *time.Time
	if req != nil {
		manual = req.ManualStart
	}
	at, err := resolveStart(order, manual, now)
	if err != nil {
		return nil, err
	}

	from := order.Status
	s.begin(order, from, at)
	order.Status = model.WorkOrderStatusInProgress
	return s.commitTransition(ctx, viewer, order, from, nil, false)
}

func (s *workOrderService) Pause(ctx context.Context, viewer Viewer, id string) (*dto.WorkOrderResponse, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.WorkOrderStatusInProgress {
		return nil, ErrInvalidTransition
	}
	closeInterval(order, s.clock.Now())
	order.Status = model.WorkOrderStatusPaused
	return s.commitTransition(ctx, viewer, order, model.WorkOrderStatusInProgress, nil, false)
}

func (s *workOrderService) Complete(ctx context.Context, viewer Viewer, id string) (*dto.WorkOrderResponse, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, model.WorkOrderStatusCompleted) {
		return nil, ErrInvalidTransition
	}

	from := order.Status
	s.finish(order, s.clock.Now())
	order.Status = model.WorkOrderStatusCompleted
	return s.commitTransition(ctx, viewer, order, from, ConsumptionDeltas(order.PartsUsed), true)
}

func (s *workOrderService) Cancel(ctx context.Context, viewer Viewer, id string) (*dto.WorkOrderResponse, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if model.Terminal(order.Status) {
		return nil, ErrInvalidTransition
	}

	from := order.Status
	// 未结束区间只允许存在于进行中的工单
	closeInterval(order, s.clock.Now())
	order.Status = model.WorkOrderStatusCancelled
	return s.commitTransition(ctx, viewer, order, from, nil, false)
}

func (s *workOrderService) commitTransition(ctx context.Context, viewer Viewer, order *model.WorkOrder, from string, deltas []model.StockDelta, approve bool) (*dto.WorkOrderResponse, error) {
	now := s.clock.Now()
	order.Stamp(viewer.Username, now, false)
	if err := s.persist(ctx, order, false, deltas, approve); err != nil {
		return nil, err
	}
	s.metrics.Transition(from, order.Status)
	s.logger.Info("工单状态变更",
		zap.String("order_id", order.OrderID),
		zap.String("from", from),
		zap.String("to", order.Status),
		zap.String("by", viewer.Username),
	)
	return s.toResponse(order, now), nil
}

// begin 打开作业区间；首次离开 Pending 时记录主日期与开始时间
func (s *workOrderService) begin(order *model.WorkOrder, from string, at time.Time) {
	openInterval(order, at)
	if from == model.WorkOrderStatusPending {
		start := at
		order.StartTime = &start
		day := calendarDate(at, s.loc)
		order.PrimaryDate = &day
	}
}

// finish 关闭当前区间并补齐结束时间
func (s *workOrderService) finish(order *model.WorkOrder, now time.Time) {
	end, closed := closeInterval(order, now)
	if order.EndTime != nil {
		return
	}
	switch {
	case closed:
	case lastIntervalEnd(order.WorkIntervals) != nil:
		end = *lastIntervalEnd(order.WorkIntervals)
	default:
		end = now
	}
	order.EndTime = &end
}

// resolveStart 手动开始时间：晚于 now 时使用 now，不得早于上一区间的结束
func resolveStart(order *model.WorkOrder, manual *time.Time, now time.Time) (time.Time, error) {
	if manual == nil || manual.After(now) {
		return now, nil
	}
	if last := lastIntervalEnd(order.WorkIntervals); last != nil && manual.Before(*last) {
		return time.Time{}, pkgerrors.NewValidation("manual_start", "开始时间不能早于上一次作业结束时间")
	}
	return *manual, nil
}

// ────────────────────── UpdatePartsUsed ──────────────────────

func (s *workOrderService) UpdatePartsUsed(ctx context.Context, viewer Viewer, id string, req *dto.UpdatePartsUsedRequest) (*dto.WorkOrderResponse, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	newParts := partUsageFromDTO(req.PartsUsed)
	var deltas []model.StockDelta
	if order.Status == model.WorkOrderStatusCompleted {
		deltas = ReconcileDeltas(order.PartsUsed, newParts)
	}
	order.PartsUsed = newParts

	now := s.clock.Now()
	order.Stamp(viewer.Username, now, false)
	if err := s.persist(ctx, order, false, deltas, false); err != nil {
		return nil, err
	}
	return s.toResponse(order, now), nil
}

// persist 在一个事务内完成库存变动、工单写入与来源请求审批
func (s *workOrderService) persist(ctx context.Context, order *model.WorkOrder, creating bool, deltas []model.StockDelta, approve bool) error {
	var applied []model.StockDelta
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if applied, err = s.ledger.Apply(ctx, tx, deltas); err != nil {
			return err
		}
		if creating {
			err = tx.WorkOrder.Create(ctx, order)
		} else {
			err = tx.WorkOrder.Update(ctx, order)
		}
		if err != nil {
			return err
		}
		if approve && order.SourceRequestID != nil {
			ok, err := tx.Request.ApproveIfPending(ctx, *order.SourceRequestID, order.OrderID)
			if err != nil {
				return err
			}
			if !ok {
				s.logger.Info("来源请求已不是 Pending，保持原状态",
					zap.String("order_id", order.OrderID),
					zap.String("request_id", *order.SourceRequestID),
				)
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsInsufficientStock(err) {
			s.logger.Warn("库存不足，工单未保存", zap.String("order_id", order.OrderID), zap.Error(err))
		} else {
			s.logger.Error("保存工单失败", zap.String("order_id", order.OrderID), zap.Error(err))
		}
		return err
	}

	s.ledger.Record(applied)
	s.notify.stockChanged(ctx, s.repo.Part, applied)
	return nil
}

// ────────────────────── Board / Assigned ──────────────────────

func (s *workOrderService) Board(ctx context.Context, viewer Viewer) (*dto.BoardResponse, error) {
	scope := VisibleScope(viewer)
	orders, _, err := s.repo.WorkOrder.List(ctx, repository.WorkOrderFilter{
		MachineIDs: scope.OrderMachineIDs(),
		Statuses: []string{
			model.WorkOrderStatusPending,
			model.WorkOrderStatusInProgress,
			model.WorkOrderStatusPaused,
		},
	})
	if err != nil {
		s.logger.Error("查询看板工单失败", zap.Error(err))
		return nil, err
	}

	reqs, err := s.repo.Request.List(ctx, repository.RequestFilter{
		Requester:  scope.Requester(),
		MachineIDs: scope.RequestMachineIDs(),
		Status:     model.RequestStatusPending,
	})
	if err != nil {
		s.logger.Error("查询待处理请求失败", zap.Error(err))
		return nil, err
	}
	pending, err := requestResponses(ctx, s.repo, s.catalog, reqs)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	board := &dto.BoardResponse{
		PendingRequests: pending,
		Pending:         []dto.WorkOrderResponse{},
		InProgress:      []dto.WorkOrderResponse{},
		Paused:          []dto.WorkOrderResponse{},
	}
	for i := range orders {
		resp := *s.toResponse(&orders[i], now)
		switch orders[i].Status {
		case model.WorkOrderStatusPending:
			board.Pending = append(board.Pending, resp)
		case model.WorkOrderStatusInProgress:
			board.InProgress = append(board.InProgress, resp)
		case model.WorkOrderStatusPaused:
			board.Paused = append(board.Paused, resp)
		}
	}
	return board, nil
}

func (s *workOrderService) Assigned(ctx context.Context, viewer Viewer) ([]dto.WorkOrderResponse, error) {
	orders, _, err := s.repo.WorkOrder.List(ctx, repository.WorkOrderFilter{
		MachineIDs: VisibleScope(viewer).OrderMachineIDs(),
		Technician: viewer.Username,
		Statuses: []string{
			model.WorkOrderStatusPending,
			model.WorkOrderStatusInProgress,
			model.WorkOrderStatusPaused,
		},
	})
	if err != nil {
		s.logger.Error("查询分配工单失败", zap.String("username", viewer.Username), zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	result := make([]dto.WorkOrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, *s.toResponse(&orders[i], now))
	}
	return result, nil
}

// ────────────────────── 内部方法 ──────────────────────

// load 读取工单，不在可见范围内时视为不存在
func (s *workOrderService) load(ctx context.Context, viewer Viewer, id string) (*model.WorkOrder, error) {
	order, err := s.repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		s.logger.Error("查询工单失败", zap.String("order_id", id), zap.Error(err))
		return nil, err
	}
	if !VisibleScope(viewer).WorkOrder(order) {
		return nil, ErrWorkOrderNotFound
	}
	return order, nil
}

func (s *workOrderService) toResponse(o *model.WorkOrder, now time.Time) *dto.WorkOrderResponse {
	cost := s.cost.Order(o)
	resp := &dto.WorkOrderResponse{
		OrderID:            o.OrderID,
		MachineID:          o.MachineID,
		MachineName:        machineName(s.catalog, o.MachineID),
		Type:               o.Type,
		Description:        o.Description,
		Status:             o.Status,
		Requester:          o.Requester,
		LeadTechnician:     o.LeadTechnician,
		SupportTechnicians: nonNil(o.SupportTechnicians),
		Technicians:        nonNil(o.Technicians),
		FailureType:        o.FailureType,
		MaintenanceType:    o.MaintenanceType,
		StartTime:          o.StartTime,
		EndTime:            o.EndTime,
		WorkIntervals:      make([]dto.WorkIntervalDTO, 0, len(o.WorkIntervals)),
		PartsUsed:          make([]dto.PartUsageDTO, 0, len(o.PartsUsed)),
		AdditionalCost:     o.AdditionalCost,
		SourceRequestID:    o.SourceRequestID,
		WorkedSeconds:      int64(TotalWorkDuration(o.WorkIntervals).Seconds()),
		ElapsedSeconds:     int64(ElapsedDuration(o, now).Seconds()),
		Cost: dto.CostBreakdown{
			PartsCost:      cost.Parts,
			LaborCost:      cost.Labor,
			AdditionalCost: cost.Additional,
			TotalCost:      cost.Total(),
		},
		CreatedAt: o.CreatedAt.Format(dto.TimeLayout),
	}
	if o.PrimaryDate != nil {
		resp.PrimaryDate = o.PrimaryDate.Format(dto.DateLayout)
	}
	for _, iv := range o.WorkIntervals {
		resp.WorkIntervals = append(resp.WorkIntervals, dto.WorkIntervalDTO{Start: iv.Start, End: iv.End})
	}
	for _, u := range o.PartsUsed {
		resp.PartsUsed = append(resp.PartsUsed, dto.PartUsageDTO{PartID: u.PartID, Quantity: u.Quantity})
	}
	return resp
}

func validateSaveRequest(req *dto.SaveWorkOrderRequest, status string) error {
	if !ValidWorkOrderID(req.OrderID) {
		return pkgerrors.NewValidation("order_id", "工单号格式应为 MA-YY-NNNN")
	}
	switch req.Type {
	case model.WorkOrderTypeCorrective:
		if req.FailureType == "" {
			return pkgerrors.NewValidation("failure_type", "纠正性工单必须填写故障类型")
		}
	case model.WorkOrderTypePreventive:
		if req.MaintenanceType == "" {
			return pkgerrors.NewValidation("maintenance_type", "预防性工单必须填写保养类型")
		}
	default:
		return pkgerrors.NewValidation("type", "工单类型无效")
	}
	if !model.ValidWorkOrderStatus(status) {
		return pkgerrors.NewValidation("status", "工单状态无效")
	}
	if status != model.WorkOrderStatusCancelled && req.LeadTechnician == "" {
		return pkgerrors.NewValidation("lead_technician", "必须指定负责人")
	}
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		return pkgerrors.NewValidation("end_time", "结束时间必须晚于开始时间")
	}
	return nil
}

// technicianUnion {lead} ∪ support，保持顺序
func technicianUnion(lead string, support []string) []string {
	out := make([]string, 0, len(support)+1)
	if lead != "" {
		out = append(out, lead)
	}
	return append(out, dedupe(support, lead)...)
}

// dedupe 去重并去掉空值与 exclude
func dedupe(items []string, exclude string) []string {
	seen := map[string]bool{exclude: true, "": true}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}

// partUsageFromDTO 合并同一备件并丢弃非正数量
func partUsageFromDTO(in []dto.PartUsageDTO) []model.PartUsage {
	out := make([]model.PartUsage, 0, len(in))
	index := make(map[string]int, len(in))
	for _, u := range in {
		if u.Quantity <= 0 || u.PartID == "" {
			continue
		}
		if i, ok := index[u.PartID]; ok {
			out[i].Quantity += u.Quantity
			continue
		}
		index[u.PartID] = len(out)
		out = append(out, model.PartUsage{PartID: u.PartID, Quantity: u.Quantity})
	}
	return out
}

func statusIn(status string, allowed []string) bool {
	for _, a := range allowed {
		if status == a {
			return true
		}
	}
	return false
}

// calendarDate 取 loc 时区下的日历日期
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDateParam(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse(dto.DateLayout, v)
	if err != nil {
		return nil, pkgerrors.NewValidation(field, "日期格式应为 YYYY-MM-DD")
	}
	return &d, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
