package dto

// ── 人员模块 DTO ──

// CreateTechnicianRequest 创建用户请求
type CreateTechnicianRequest struct {
	Username          string   `json:"username"            binding:"required,max=50"`
	Password          string   `json:"password"            binding:"required,min=4,max=72"`
	Role              string   `json:"role"                binding:"required,oneof=Admin AreaSupervisor Technician Guest Operator"`
	Permissions       []string `json:"permissions"`
	ManagedMachineIDs []string `json:"managed_machine_ids"`
	Salary            float64  `json:"salary"              binding:"min=0"`
}

// UpdateTechnicianRequest 更新用户请求，Password 为空时保留原密码
type UpdateTechnicianRequest struct {
	Password          *string   `json:"password"            binding:"omitempty,min=4,max=72"`
	Role              *string   `json:"role"                binding:"omitempty,oneof=Admin AreaSupervisor Technician Guest Operator"`
	Permissions       *[]string `json:"permissions"`
	ManagedMachineIDs *[]string `json:"managed_machine_ids"`
	Salary            *float64  `json:"salary"              binding:"omitempty,min=0"`
}

// TechnicianResponse 用户信息响应（不含凭据）
type TechnicianResponse struct {
	Username          string   `json:"username"`
	Role              string   `json:"role"`
	Permissions       []string `json:"permissions"`
	ManagedMachineIDs []string `json:"managed_machine_ids"`
	Salary            float64  `json:"salary"`
	HourlyRate        float64  `json:"hourly_rate"`
}
