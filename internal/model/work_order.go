package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// 工单类型
const (
	WorkOrderTypePreventive = "Preventive"
	WorkOrderTypeCorrective = "Corrective"
)

// 工单状态
const (
	WorkOrderStatusPending    = "Pending"
	WorkOrderStatusInProgress = "InProgress"
	WorkOrderStatusPaused     = "Paused"
	WorkOrderStatusCompleted  = "Completed"
	WorkOrderStatusCancelled  = "Cancelled"
)

// ValidWorkOrderStatus 判断状态是否合法
func ValidWorkOrderStatus(s string) bool {
	switch s {
	case WorkOrderStatusPending, WorkOrderStatusInProgress, WorkOrderStatusPaused,
		WorkOrderStatusCompleted, WorkOrderStatusCancelled:
		return true
	}
	return false
}

// Terminal 已完成或已取消
func Terminal(status string) bool {
	return status == WorkOrderStatusCompleted || status == WorkOrderStatusCancelled
}

// WorkInterval 一段实际作业时间，End 为空表示仍在进行
type WorkInterval struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Open 是否未结束
func (i WorkInterval) Open() bool { return i.End == nil }

// Duration 已结束区间的时长，未结束或倒序返回 0
func (i WorkInterval) Duration() time.Duration {
	if i.End == nil || !i.End.After(i.Start) {
		return 0
	}
	return i.End.Sub(i.Start)
}

// PartUsage 工单耗用的备件
type PartUsage struct {
	PartID   string `json:"part_id"`
	Quantity int    `json:"quantity"`
}

// WorkOrder 维修工单，对应 work_orders
type WorkOrder struct {
	OrderID            string                            `gorm:"type:varchar(20);primaryKey"  json:"order_id"` // MA-YY-NNNN
	MachineID          string                            `gorm:"type:varchar(50);not null"    json:"machine_id"`
	Type               string                            `gorm:"type:varchar(20);not null"    json:"type"`
	Description        string                            `gorm:"type:text"                    json:"description"`
	Status             string                            `gorm:"type:varchar(20);not null"    json:"status"`
	Requester          string                            `gorm:"type:varchar(50)"             json:"requester"`
	LeadTechnician     string                            `gorm:"type:varchar(50)"             json:"lead_technician"`
	SupportTechnicians pq.StringArray                    `gorm:"type:text[]"                  json:"support_technicians"`
	Technicians        pq.StringArray                    `gorm:"type:text[]"                  json:"technicians"` // {lead} ∪ support
	FailureType        string                            `gorm:"type:varchar(100)"            json:"failure_type,omitempty"`
	MaintenanceType    string                            `gorm:"type:varchar(100)"            json:"maintenance_type,omitempty"`
	PrimaryDate        *time.Time                        `gorm:"type:date"                    json:"primary_date,omitempty"`
	StartTime          *time.Time                        `json:"start_time,omitempty"`
	EndTime            *time.Time                        `json:"end_time,omitempty"`
	WorkIntervals      datatypes.JSONSlice[WorkInterval] `gorm:"type:jsonb;not null"          json:"work_intervals"`
	PartsUsed          datatypes.JSONSlice[PartUsage]    `gorm:"type:jsonb;not null"          json:"parts_used"`
	AdditionalCost     float64                           `gorm:"type:numeric(14,2);not null"  json:"additional_cost"`
	SourceRequestID    *string                           `gorm:"type:varchar(20)"             json:"source_request_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (WorkOrder) TableName() string { return "work_orders" }

// HasTechnician 技术员是否参与该工单
func (w *WorkOrder) HasTechnician(username string) bool {
	for _, t := range w.Technicians {
		if t == username {
			return true
		}
	}
	return false
}

// FailureAnchor MTBF 排序用的时间点：创建时间，缺失时回退到主日期
func (w *WorkOrder) FailureAnchor() time.Time {
	if !w.CreatedAt.IsZero() {
		return w.CreatedAt
	}
	if w.PrimaryDate != nil {
		return *w.PrimaryDate
	}
	return time.Time{}
}
