package dto

// ── 服务请求模块 DTO ──

// SubmitServiceRequest 操作员提交服务请求
type SubmitServiceRequest struct {
	MachineID   string `json:"machine_id"  binding:"required,max=50"`
	Description string `json:"description" binding:"required"`
}

// ConvertServiceRequest 将服务请求转为纠正性工单
type ConvertServiceRequest struct {
	OrderID            string   `json:"order_id"            binding:"omitempty,max=20"` // 为空时自动生成
	LeadTechnician     string   `json:"lead_technician"     binding:"required,max=50"`
	SupportTechnicians []string `json:"support_technicians"`
	FailureType        string   `json:"failure_type"        binding:"required,max=100"`
	PrimaryDate        string   `json:"primary_date"        binding:"omitempty,datetime=2006-01-02"`
}

// ServiceRequestResponse 服务请求响应
type ServiceRequestResponse struct {
	RequestID     string  `json:"request_id"`
	MachineID     string  `json:"machine_id"`
	MachineName   string  `json:"machine_name"`
	Description   string  `json:"description"`
	Requester     string  `json:"requester"`
	Status        string  `json:"status"`
	DisplayStatus string  `json:"display_status"` // 关联工单存在时取工单状态
	WorkOrderID   *string `json:"work_order_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}
