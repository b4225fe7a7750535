package dto

import "time"

// ── 工单模块 DTO ──

// PartUsageDTO 工单备件用量
type PartUsageDTO struct {
	PartID   string `json:"part_id"  binding:"required"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

// WorkIntervalDTO 作业区间
type WorkIntervalDTO struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// SaveWorkOrderRequest 整表单保存工单（新建或编辑）
type SaveWorkOrderRequest struct {
	OrderID            string         `json:"order_id"            binding:"required,max=20"`
	MachineID          string         `json:"machine_id"          binding:"required,max=50"`
	Type               string         `json:"type"                binding:"required,oneof=Preventive Corrective"`
	Description        string         `json:"description"`
	Status             string         `json:"status"              binding:"omitempty,oneof=Pending InProgress Paused Completed Cancelled"`
	Requester          string         `json:"requester"           binding:"omitempty,max=50"`
	LeadTechnician     string         `json:"lead_technician"     binding:"omitempty,max=50"`
	SupportTechnicians []string       `json:"support_technicians"`
	FailureType        string         `json:"failure_type"        binding:"omitempty,max=100"`
	MaintenanceType    string         `json:"maintenance_type"    binding:"omitempty,max=100"`
	PrimaryDate        string         `json:"primary_date"        binding:"omitempty,datetime=2006-01-02"`
	StartTime          *time.Time     `json:"start_time"`
	EndTime            *time.Time     `json:"end_time"`
	PartsUsed          []PartUsageDTO `json:"parts_used"          binding:"omitempty,dive"`
	AdditionalCost     float64        `json:"additional_cost"     binding:"min=0"`
	SourceRequestID    string         `json:"source_request_id"   binding:"omitempty,max=20"`
}

// StartWorkOrderRequest 开始 / 恢复工单，ManualStart 不晚于当前时间时作为区间起点
type StartWorkOrderRequest struct {
	ManualStart *time.Time `json:"manual_start"`
}

// UpdatePartsUsedRequest 替换工单备件清单
type UpdatePartsUsedRequest struct {
	PartsUsed []PartUsageDTO `json:"parts_used" binding:"omitempty,dive"`
}

// WorkOrderListRequest 工单列表查询参数
type WorkOrderListRequest struct {
	MachineID  string `form:"machine_id"`
	Status     string `form:"status"     binding:"omitempty,oneof=Pending InProgress Paused Completed Cancelled"`
	Type       string `form:"type"       binding:"omitempty,oneof=Preventive Corrective"`
	Technician string `form:"technician"`
	From       string `form:"from"       binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to"         binding:"omitempty,datetime=2006-01-02"`
	PaginationRequest
}

// CostBreakdown 工单成本拆分
type CostBreakdown struct {
	PartsCost      float64 `json:"parts_cost"`
	LaborCost      float64 `json:"labor_cost"`
	AdditionalCost float64 `json:"additional_cost"`
	TotalCost      float64 `json:"total_cost"`
}

// WorkOrderResponse 工单响应
type WorkOrderResponse struct {
	OrderID            string            `json:"order_id"`
	MachineID          string            `json:"machine_id"`
	MachineName        string            `json:"machine_name"`
	Type               string            `json:"type"`
	Description        string            `json:"description"`
	Status             string            `json:"status"`
	Requester          string            `json:"requester"`
	LeadTechnician     string            `json:"lead_technician"`
	SupportTechnicians []string          `json:"support_technicians"`
	Technicians        []string          `json:"technicians"`
	FailureType        string            `json:"failure_type,omitempty"`
	MaintenanceType    string            `json:"maintenance_type,omitempty"`
	PrimaryDate        string            `json:"primary_date,omitempty"`
	StartTime          *time.Time        `json:"start_time,omitempty"`
	EndTime            *time.Time        `json:"end_time,omitempty"`
	WorkIntervals      []WorkIntervalDTO `json:"work_intervals"`
	PartsUsed          []PartUsageDTO    `json:"parts_used"`
	AdditionalCost     float64           `json:"additional_cost"`
	SourceRequestID    *string           `json:"source_request_id,omitempty"`
	WorkedSeconds      int64             `json:"worked_seconds"`
	ElapsedSeconds     int64             `json:"elapsed_seconds"`
	Cost               CostBreakdown     `json:"cost"`
	CreatedAt          string            `json:"created_at"`
}

// NextIDResponse 下一个工单号
type NextIDResponse struct {
	OrderID string `json:"order_id"`
}

// BoardResponse 看板视图
type BoardResponse struct {
	PendingRequests []ServiceRequestResponse `json:"pending_requests"`
	Pending         []WorkOrderResponse      `json:"pending"`
	InProgress      []WorkOrderResponse      `json:"in_progress"`
	Paused          []WorkOrderResponse      `json:"paused"`
}
