package model

// 服务请求状态
const (
	RequestStatusPending   = "Pending"
	RequestStatusApproved  = "Approved"
	RequestStatusRejected  = "Rejected"
	RequestStatusCancelled = "Cancelled"
)

// RequestStatusPlanning 已批准但关联工单不存在时的展示状态
const RequestStatusPlanning = "Planning"

// Request 操作员提交的服务请求，对应 requests
type Request struct {
	RequestID   string  `gorm:"type:varchar(20);primaryKey"             json:"request_id"` // SOL-NNNN
	MachineID   string  `gorm:"type:varchar(50);not null"               json:"machine_id"`
	Description string  `gorm:"type:text;not null"                      json:"description"`
	Requester   string  `gorm:"type:varchar(50);not null"               json:"requester"`
	Status      string  `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	WorkOrderID *string `gorm:"type:varchar(20)"                        json:"work_order_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Request) TableName() string { return "requests" }
