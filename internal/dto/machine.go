package dto

// ── 设备模块 DTO ──

// WeekdayGroupDTO 工作日时段
type WeekdayGroupDTO struct {
	ActiveDays []int  `json:"active_days" binding:"omitempty,dive,min=1,max=5"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// DayGroupDTO 周六 / 周日时段
type DayGroupDTO struct {
	Active    bool   `json:"active"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ScheduleDTO 每周运行排程
type ScheduleDTO struct {
	Weekday  WeekdayGroupDTO `json:"weekday"`
	Saturday DayGroupDTO     `json:"saturday"`
	Sunday   DayGroupDTO     `json:"sunday"`
}

// CreateMachineRequest 创建设备请求
type CreateMachineRequest struct {
	MachineID        string       `json:"machine_id"        binding:"required,max=50"`
	Name             string       `json:"name"              binding:"required,max=200"`
	Location         string       `json:"location"          binding:"omitempty,max=200"`
	Type             string       `json:"type"              binding:"omitempty,oneof=equipment installation"`
	Schedule         *ScheduleDTO `json:"schedule"`
	ScheduleDisabled bool         `json:"schedule_disabled"`
}

// UpdateMachineRequest 更新设备请求，NewMachineID 非空时改名
type UpdateMachineRequest struct {
	NewMachineID     *string      `json:"new_machine_id"    binding:"omitempty,max=50"`
	Name             *string      `json:"name"              binding:"omitempty,max=200"`
	Location         *string      `json:"location"          binding:"omitempty,max=200"`
	Type             *string      `json:"type"              binding:"omitempty,oneof=equipment installation"`
	Schedule         *ScheduleDTO `json:"schedule"`
	ClearSchedule    bool         `json:"clear_schedule"`
	ScheduleDisabled *bool        `json:"schedule_disabled"`
}

// MachineResponse 设备信息响应
type MachineResponse struct {
	MachineID        string       `json:"machine_id"`
	Name             string       `json:"name"`
	Location         string       `json:"location"`
	Type             string       `json:"type"`
	Schedule         *ScheduleDTO `json:"schedule,omitempty"`
	ScheduleDisabled bool         `json:"schedule_disabled"`
	CreatedAt        string       `json:"created_at"`
	UpdatedAt        string       `json:"updated_at"`
}
