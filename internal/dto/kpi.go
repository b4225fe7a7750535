package dto

// ── 指标与看板 DTO ──

// PeriodRequest 统计周期参数
// day 使用 date；week 使用 date 所在周；month 使用 year+month；year 使用 year
type PeriodRequest struct {
	Period string `form:"period" binding:"omitempty,oneof=day week month year"`
	Date   string `form:"date"   binding:"omitempty,datetime=2006-01-02"`
	Year   int    `form:"year"   binding:"omitempty,min=2000,max=2100"`
	Month  int    `form:"month"  binding:"omitempty,min=1,max=12"`
}

// KPIRequest 指标查询参数
type KPIRequest struct {
	PeriodRequest
	MachineID string `form:"machine_id"`
}

// KPIValue 指标值，样本不足时 Defined=false 且 Display 为 N/A
type KPIValue struct {
	Defined bool     `json:"defined"`
	Value   *float64 `json:"value"`
	Display string   `json:"display"`
}

// KPIResponse 可靠性与成本指标
type KPIResponse struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	MachineID       string   `json:"machine_id,omitempty"`
	MTBFDays        KPIValue `json:"mtbf_days"`
	MTTRHours       KPIValue `json:"mttr_hours"`
	AvailabilityPct KPIValue `json:"availability_pct"`
	PreventiveRatio KPIValue `json:"preventive_ratio_pct"`
	AverageCost     KPIValue `json:"average_cost"`
	ScheduledHours  float64  `json:"scheduled_hours"`
	DowntimeHours   float64  `json:"downtime_hours"`
}

// DashboardStatsResponse 看板统计
type DashboardStatsResponse struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	MachineCount    int     `json:"machine_count"`
	PendingRequests int     `json:"pending_requests"`
	PreventiveCount int     `json:"preventive_count"`
	CorrectiveCount int     `json:"corrective_count"`
	ExecutedCost    float64 `json:"executed_cost"`
	PlannedCost     float64 `json:"planned_cost"`
}
