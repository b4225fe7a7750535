package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"maint-engine/backend/internal/cache"
	"maint-engine/backend/internal/model"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tp(s string) *time.Time {
	t := ts(s)
	return &t
}

func approx(a, b float64) bool { return math.Abs(a-b) < 0.01 }

// ── 编号 ──

func TestNextWorkOrderID_MaxPlusOne(t *testing.T) {
	now := ts("2025-06-01T00:00:00Z")
	id, err := NextWorkOrderID(now, []string{"MA-25-0001", "MA-25-0007", "MA-24-0042"})
	if err != nil {
		t.Fatalf("不应出错: %v", err)
	}
	if id != "MA-25-0008" {
		t.Errorf("期望 MA-25-0008，实际=%s", id)
	}
}

func TestNextWorkOrderID_NewYearStartsAtOne(t *testing.T) {
	id, _ := NextWorkOrderID(ts("2026-01-02T00:00:00Z"), []string{"MA-25-0099"})
	if id != "MA-26-0001" {
		t.Errorf("期望 MA-26-0001，实际=%s", id)
	}
}

func TestNextWorkOrderID_Exhausted(t *testing.T) {
	_, err := NextWorkOrderID(ts("2025-06-01T00:00:00Z"), []string{"MA-25-9999"})
	if !errors.Is(err, ErrSequenceExhausted) {
		t.Errorf("期望 ErrSequenceExhausted，实际: %v", err)
	}
}

func TestNextRequestID_DoesNotReuseGaps(t *testing.T) {
	// SOL-0002 已删除
	id, _ := NextRequestID([]string{"SOL-0001", "SOL-0003"})
	if id != "SOL-0004" {
		t.Errorf("期望 SOL-0004，实际=%s", id)
	}
	first, _ := NextRequestID(nil)
	if first != "SOL-0001" {
		t.Errorf("期望 SOL-0001，实际=%s", first)
	}
}

func TestValidWorkOrderID(t *testing.T) {
	cases := map[string]bool{
		"MA-25-0001": true,
		"MA-25-001":  false,
		"MB-25-0001": false,
		"MA-2025-01": false,
		"":           false,
	}
	for id, want := range cases {
		if got := ValidWorkOrderID(id); got != want {
			t.Errorf("ValidWorkOrderID(%q)=%v，期望 %v", id, got, want)
		}
	}
}

// ── 状态机 ──

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{model.WorkOrderStatusPending, model.WorkOrderStatusInProgress, true},
		{model.WorkOrderStatusPending, model.WorkOrderStatusCancelled, true},
		{model.WorkOrderStatusPending, model.WorkOrderStatusCompleted, false},
		{model.WorkOrderStatusPending, model.WorkOrderStatusPaused, false},
		{model.WorkOrderStatusInProgress, model.WorkOrderStatusPaused, true},
		{model.WorkOrderStatusInProgress, model.WorkOrderStatusCompleted, true},
		{model.WorkOrderStatusInProgress, model.WorkOrderStatusCancelled, true},
		{model.WorkOrderStatusPaused, model.WorkOrderStatusInProgress, true},
		{model.WorkOrderStatusPaused, model.WorkOrderStatusCompleted, true},
		{model.WorkOrderStatusPaused, model.WorkOrderStatusCancelled, true},
		{model.WorkOrderStatusCompleted, model.WorkOrderStatusInProgress, false},
		{model.WorkOrderStatusCompleted, model.WorkOrderStatusCancelled, false},
		{model.WorkOrderStatusCancelled, model.WorkOrderStatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s)=%v，期望 %v", tt.from, tt.to, got, tt.want)
		}
	}
}

// ── 作业时间 ──

func TestOpenInterval_SecondCallIsNoop(t *testing.T) {
	o := &model.WorkOrder{}
	if !openInterval(o, ts("2025-01-01T08:00:00Z")) {
		t.Fatal("第一次应打开区间")
	}
	if openInterval(o, ts("2025-01-01T09:00:00Z")) {
		t.Error("已有未结束区间时不应再打开")
	}
	if len(o.WorkIntervals) != 1 {
		t.Errorf("期望 1 个区间，实际=%d", len(o.WorkIntervals))
	}
}

func TestCloseInterval_ClampsEndToStart(t *testing.T) {
	o := &model.WorkOrder{WorkIntervals: []model.WorkInterval{{Start: ts("2025-01-01T08:00:00Z")}}}
	end, ok := closeInterval(o, ts("2025-01-01T07:00:00Z"))
	if !ok {
		t.Fatal("应关闭区间")
	}
	if !end.Equal(ts("2025-01-01T08:00:00Z")) {
		t.Errorf("结束时间应不早于开始，实际=%v", end)
	}
	if _, ok := closeInterval(o, ts("2025-01-01T09:00:00Z")); ok {
		t.Error("没有未结束区间时不应关闭")
	}
}

func TestElapsedDuration(t *testing.T) {
	o := &model.WorkOrder{
		Status: model.WorkOrderStatusInProgress,
		WorkIntervals: []model.WorkInterval{
			{Start: ts("2025-01-01T08:00:00Z"), End: tp("2025-01-01T09:00:00Z")},
			{Start: ts("2025-01-01T10:00:00Z")},
		},
	}
	now := ts("2025-01-01T10:30:00Z")
	if got := ElapsedDuration(o, now); got != 90*time.Minute {
		t.Errorf("期望 90m，实际=%v", got)
	}
	if got := TotalWorkDuration(o.WorkIntervals); got != time.Hour {
		t.Errorf("实际工时只含已结束区间，实际=%v", got)
	}

	o.Status = model.WorkOrderStatusPaused
	if got := ElapsedDuration(o, now); got != time.Hour {
		t.Errorf("非进行中工单不计当前区间，实际=%v", got)
	}
}

// ── 计划运行时间 ──

func weekdaySchedule(days []int, start, end string) *model.Schedule {
	return &model.Schedule{Weekday: model.WeekdayGroup{ActiveDays: days, StartTime: start, EndTime: end}}
}

func TestUptimeCalculator_Scheduled(t *testing.T) {
	u := NewUptimeCalculator(time.UTC, 10)
	// 2025-03-03 周一 ~ 2025-03-09 周日
	start, end := ts("2025-03-03T00:00:00Z"), ts("2025-03-09T23:59:59Z")

	tests := []struct {
		name    string
		machine model.Machine
		want    time.Duration
	}{
		{"工作日 08-17", model.Machine{Schedule: weekdaySchedule([]int{1, 2, 3, 4, 5}, "08:00", "17:00")}, 45 * time.Hour},
		{"无排程按默认 10h", model.Machine{}, 70 * time.Hour},
		{"停用排程", model.Machine{ScheduleDisabled: true, Schedule: weekdaySchedule([]int{1}, "08:00", "17:00")}, 0},
		{"周六启用", model.Machine{Schedule: &model.Schedule{Saturday: model.DayGroup{Active: true, StartTime: "08:00", EndTime: "12:00"}}}, 4 * time.Hour},
		{"结束早于开始计 0", model.Machine{Schedule: weekdaySchedule([]int{1}, "17:00", "08:00")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := u.Scheduled([]model.Machine{tt.machine}, start, end)
			if got != tt.want {
				t.Errorf("期望 %v，实际=%v", tt.want, got)
			}
		})
	}
}

// ── 成本 ──

func testCatalog() *cache.Catalog {
	c := cache.NewCatalog(zap.NewNop())
	c.Technicians.Replace([]model.Technician{
		{Username: "ana", Role: model.RoleTechnician, Salary: 16000},
		{Username: "luis", Role: model.RoleTechnician, Salary: 24000},
		{Username: "sup", Role: model.RoleAreaSupervisor, ManagedMachineIDs: []string{"M1"}},
		{Username: "op", Role: model.RoleOperator},
	})
	c.Parts.Replace([]model.Part{
		{PartID: "P1", UnitCost: 50, Stock: 10},
		{PartID: "P2", UnitCost: 20, Stock: 10, MachineIDs: []string{"M2"}},
	})
	c.Machines.Replace([]model.Machine{
		{MachineID: "M1", Name: "Prensa", Schedule: weekdaySchedule([]int{1, 2, 3, 4, 5}, "08:00", "17:00")},
		{MachineID: "M2", Name: "Horno"},
	})
	return c
}

func TestCostCalculator_OrderScenario(t *testing.T) {
	calc := NewCostCalculator(testCatalog(), 160)
	o := &model.WorkOrder{
		OrderID:     "MA-25-0001",
		Type:        model.WorkOrderTypeCorrective,
		Technicians: []string{"ana", "luis"},
		WorkIntervals: []model.WorkInterval{
			{Start: ts("2025-01-01T08:00:00Z"), End: tp("2025-01-01T10:00:00Z")},
		},
		PartsUsed: []model.PartUsage{{PartID: "P1", Quantity: 3}},
	}

	c := calc.Order(o)
	if !approx(c.Parts, 150) || !approx(c.Labor, 500) || !approx(c.Total(), 650) {
		t.Errorf("期望 150/500/650，实际 %.2f/%.2f/%.2f", c.Parts, c.Labor, c.Total())
	}

	o.AdditionalCost = 25
	if got := calc.Order(o).Total(); !approx(got, 675) {
		t.Errorf("附加成本应计入总成本，实际=%.2f", got)
	}
}

func TestCostCalculator_MissingEntitiesCountZero(t *testing.T) {
	calc := NewCostCalculator(testCatalog(), 160)
	o := &model.WorkOrder{
		Technicians:   []string{"ghost"},
		WorkIntervals: []model.WorkInterval{{Start: ts("2025-01-01T08:00:00Z"), End: tp("2025-01-01T09:00:00Z")}},
		PartsUsed:     []model.PartUsage{{PartID: "NOPE", Quantity: 4}},
	}
	if got := calc.Order(o).Total(); got != 0 {
		t.Errorf("不存在的备件与人员应计 0，实际=%v", got)
	}
}

func TestCostCalculator_ZeroHoursNoLabor(t *testing.T) {
	calc := NewCostCalculator(testCatalog(), 160)
	o := &model.WorkOrder{Technicians: []string{"ana", "luis"}}
	if got := calc.Order(o).Labor; got != 0 {
		t.Errorf("没有工时时人工成本应为 0，实际=%v", got)
	}
}

// ── KPI ──

func newTestEngine() *KPIEngine {
	return NewKPIEngine(NewUptimeCalculator(time.UTC, 10), NewCostCalculator(testCatalog(), 160))
}

func TestKPIEngine_AvailabilityScenario(t *testing.T) {
	machines := []model.Machine{{MachineID: "M1", Schedule: weekdaySchedule([]int{1, 2, 3, 4, 5}, "08:00", "17:00")}}
	orders := []model.WorkOrder{{
		OrderID: "MA-25-0001", MachineID: "M1",
		Type:   model.WorkOrderTypeCorrective,
		Status: model.WorkOrderStatusCompleted,
		WorkIntervals: []model.WorkInterval{
			{Start: ts("2025-03-03T09:00:00Z"), End: tp("2025-03-03T11:00:00Z")},
		},
	}}
	// 2025-03-03 为周一
	r := newTestEngine().Compute(orders, machines, ts("2025-03-03T00:00:00Z"), ts("2025-03-03T23:59:59Z"))

	v, ok := r.AvailabilityPct.Value()
	if !ok || !approx(v, 77.78) {
		t.Errorf("期望可用率 77.78%%，实际=%v (defined=%v)", v, ok)
	}
	if r.AvailabilityPct.String() != "77.78" {
		t.Errorf("显示值错误: %s", r.AvailabilityPct)
	}
	mttr, _ := r.MTTRHours.Value()
	if !approx(mttr, 2) {
		t.Errorf("期望 MTTR=2h，实际=%v", mttr)
	}
}

func TestKPIEngine_UndefinedSentinels(t *testing.T) {
	e := newTestEngine()
	start, end := ts("2025-03-01T00:00:00Z"), ts("2025-03-31T23:59:59Z")

	// 0 个纠正性工单、无设备
	r := e.Compute(nil, nil, start, end)
	for name, m := range map[string]Metric{
		"MTBF": r.MTBFDays, "MTTR": r.MTTRHours, "Availability": r.AvailabilityPct,
		"PreventiveRatio": r.PreventiveRatioPct, "AverageCost": r.AverageCost,
	} {
		if m.IsDefined() {
			t.Errorf("%s 在没有样本时应为未定义", name)
		}
		if m.String() != "N/A" {
			t.Errorf("%s 未定义时应显示 N/A，实际=%s", name, m)
		}
	}

	// 1 个纠正性工单（未完成）：MTBF、MTTR 仍未定义
	one := []model.WorkOrder{{Type: model.WorkOrderTypeCorrective, Status: model.WorkOrderStatusInProgress, BaseModel: model.BaseModel{CreatedAt: start}}}
	r = e.Compute(one, nil, start, end)
	if r.MTBFDays.IsDefined() || r.MTTRHours.IsDefined() {
		t.Error("单个未完成的纠正性工单不足以计算 MTBF / MTTR")
	}
}

func TestKPIEngine_MTBFAndRatios(t *testing.T) {
	e := newTestEngine()
	orders := []model.WorkOrder{
		{Type: model.WorkOrderTypeCorrective, Status: model.WorkOrderStatusCompleted, BaseModel: model.BaseModel{CreatedAt: ts("2025-03-01T00:00:00Z")}},
		{Type: model.WorkOrderTypeCorrective, Status: model.WorkOrderStatusPending, BaseModel: model.BaseModel{CreatedAt: ts("2025-03-11T00:00:00Z")}},
		{Type: model.WorkOrderTypeCorrective, Status: model.WorkOrderStatusCompleted, BaseModel: model.BaseModel{CreatedAt: ts("2025-03-05T00:00:00Z")}},
		{Type: model.WorkOrderTypePreventive, Status: model.WorkOrderStatusCompleted, AdditionalCost: 300},
		{Type: model.WorkOrderTypePreventive, Status: model.WorkOrderStatusCancelled},
	}
	r := e.Compute(orders, nil, ts("2025-03-01T00:00:00Z"), ts("2025-03-31T23:59:59Z"))

	mtbf, ok := r.MTBFDays.Value()
	if !ok || !approx(mtbf, 5) {
		t.Errorf("期望 MTBF=5 天，实际=%v", mtbf)
	}
	ratio, _ := r.PreventiveRatioPct.Value()
	if !approx(ratio, 100.0/3) {
		t.Errorf("期望预防性比例 33.33%%，实际=%v", ratio)
	}
	avg, _ := r.AverageCost.Value()
	if !approx(avg, 100) {
		t.Errorf("期望平均成本 100，实际=%v", avg)
	}
}

func TestKPIEngine_AvailabilityNeverNegative(t *testing.T) {
	machines := []model.Machine{{MachineID: "M1", Schedule: weekdaySchedule([]int{1}, "08:00", "09:00")}}
	orders := []model.WorkOrder{{
		Type: model.WorkOrderTypeCorrective, Status: model.WorkOrderStatusCompleted,
		WorkIntervals: []model.WorkInterval{{Start: ts("2025-03-03T00:00:00Z"), End: tp("2025-03-03T05:00:00Z")}},
	}}
	r := newTestEngine().Compute(orders, machines, ts("2025-03-03T00:00:00Z"), ts("2025-03-03T23:59:59Z"))
	if v, _ := r.AvailabilityPct.Value(); v != 0 {
		t.Errorf("停机超过计划时间时可用率应为 0，实际=%v", v)
	}
}

// ── 统计周期 ──

func TestResolvePeriod(t *testing.T) {
	now := ts("2025-03-12T15:00:00Z") // 周三
	tests := []struct {
		name       string
		kind, date string
		year, mon  int
		from, to   string
	}{
		{"day", PeriodDay, "2025-03-05", 0, 0, "2025-03-05", "2025-03-05"},
		{"week 从周日开始", PeriodWeek, "", 0, 0, "2025-03-09", "2025-03-15"},
		{"month 默认当月", "", "", 0, 0, "2025-03-01", "2025-03-31"},
		{"month 指定", PeriodMonth, "", 2024, 2, "2024-02-01", "2024-02-29"},
		{"year", PeriodYear, "", 2024, 0, "2024-01-01", "2024-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ResolvePeriod(tt.kind, tt.date, tt.year, tt.mon, now, time.UTC)
			if err != nil {
				t.Fatalf("不应出错: %v", err)
			}
			if p.From.Format("2006-01-02") != tt.from || p.To.Format("2006-01-02") != tt.to {
				t.Errorf("期望 [%s, %s]，实际 [%s, %s]", tt.from, tt.to,
					p.From.Format("2006-01-02"), p.To.Format("2006-01-02"))
			}
		})
	}

	if _, err := ResolvePeriod("decade", "", 0, 0, now, time.UTC); err == nil {
		t.Error("未知周期类型应报错")
	}
}

// ── 可见范围 ──

func TestVisibleScope(t *testing.T) {
	m1 := &model.WorkOrder{MachineID: "M1"}
	m2 := &model.WorkOrder{MachineID: "M2"}

	sup := VisibleScope(Viewer{Username: "sup", Role: model.RoleAreaSupervisor, ManagedMachineIDs: []string{"M1"}})
	if !sup.WorkOrder(m1) || sup.WorkOrder(m2) {
		t.Error("AreaSupervisor 只能看到所辖设备的工单")
	}
	if !sup.Part(&model.Part{}) {
		t.Error("未关联设备的备件对所有人可见")
	}
	if sup.Part(&model.Part{MachineIDs: []string{"M2"}}) {
		t.Error("只关联了不可见设备的备件不可见")
	}
	if got := sup.Narrow("M2"); len(got) != 0 || got == nil {
		t.Errorf("与不可见设备取交集应为空切片，实际=%v", got)
	}

	op := VisibleScope(Viewer{Username: "op", Role: model.RoleOperator})
	if op.WorkOrder(m1) {
		t.Error("Operator 不可见工单")
	}
	if ids := op.OrderMachineIDs(); ids == nil || len(ids) != 0 {
		t.Error("Operator 的工单过滤应为空切片")
	}
	if !op.Request(&model.Request{Requester: "op"}) || op.Request(&model.Request{Requester: "other"}) {
		t.Error("Operator 只能看到本人请求")
	}

	admin := VisibleScope(Viewer{Username: "admin", Role: model.RoleAdmin})
	if admin.OrderMachineIDs() != nil {
		t.Error("Admin 不限设备")
	}
}

func TestResolveViewer_UsesCatalogRoleAndMachines(t *testing.T) {
	v := ResolveViewer(testCatalog(), "sup", model.RoleTechnician)
	if v.Role != model.RoleAreaSupervisor {
		t.Errorf("应以人员资料中的角色为准，实际=%s", v.Role)
	}
	if len(v.ManagedMachineIDs) != 1 || v.ManagedMachineIDs[0] != "M1" {
		t.Errorf("应补全所辖设备，实际=%v", v.ManagedMachineIDs)
	}
}
