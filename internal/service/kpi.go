package service

import (
	"fmt"
	"sort"
	"time"

	"maint-engine/backend/internal/model"
)

// ── 指标值 ──

// Metric 可能无定义的指标，样本不足时为 Undefined，与 0 区分
type Metric struct {
	value   float64
	defined bool
}

// Undefined 样本不足
var Undefined = Metric{}

// Defined 构造有定义的指标
func Defined(v float64) Metric { return Metric{value: v, defined: true} }

// Value 返回值与是否有定义
func (m Metric) Value() (float64, bool) { return m.value, m.defined }

// IsDefined 是否有定义
func (m Metric) IsDefined() bool { return m.defined }

// String 保留两位小数，无定义时为 N/A
func (m Metric) String() string {
	if !m.defined {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", m.value)
}

// KPIResult 一个时间窗口与设备范围内的指标
type KPIResult struct {
	MTBFDays           Metric
	MTTRHours          Metric
	AvailabilityPct    Metric
	PreventiveRatioPct Metric
	AverageCost        Metric
	Scheduled          time.Duration
	Downtime           time.Duration
}

// KPIEngine 指标计算
type KPIEngine struct {
	uptime UptimeCalculator
	cost   *CostCalculator
}

// NewKPIEngine 创建指标计算器
func NewKPIEngine(uptime UptimeCalculator, cost *CostCalculator) *KPIEngine {
	return &KPIEngine{uptime: uptime, cost: cost}
}

// Compute 基于已按窗口与设备范围过滤的工单计算指标
// machines 为参与可用率计算的设备
func (e *KPIEngine) Compute(orders []model.WorkOrder, machines []model.Machine, start, end time.Time) KPIResult {
	var (
		corrective []model.WorkOrder
		repairs    []model.WorkOrder
		completed  []model.WorkOrder
		preventive int
	)
	for i := range orders {
		o := orders[i]
		isCompleted := o.Status == model.WorkOrderStatusCompleted
		if o.Type == model.WorkOrderTypeCorrective {
			corrective = append(corrective, o)
			if isCompleted {
				repairs = append(repairs, o)
			}
		}
		if isCompleted {
			completed = append(completed, o)
			if o.Type == model.WorkOrderTypePreventive {
				preventive++
			}
		}
	}

	var r KPIResult

	// MTBF 至少需要两次故障
	if len(corrective) >= 2 {
		sort.SliceStable(corrective, func(i, j int) bool {
			return corrective[i].FailureAnchor().Before(corrective[j].FailureAnchor())
		})
		span := corrective[len(corrective)-1].FailureAnchor().Sub(corrective[0].FailureAnchor())
		// 所有故障时间点相同时无法给出间隔
		if span > 0 {
			mean := span / time.Duration(len(corrective)-1)
			r.MTBFDays = Defined(mean.Hours() / 24)
		}
	}

	// MTTR 与停机时间只统计已完成的纠正性工单
	for i := range repairs {
		r.Downtime += TotalWorkDuration(repairs[i].WorkIntervals)
	}
	if len(repairs) > 0 {
		r.MTTRHours = Defined(r.Downtime.Hours() / float64(len(repairs)))
	}

	r.Scheduled = e.uptime.Scheduled(machines, start, end)
	if r.Scheduled > 0 {
		ratio := float64(r.Scheduled-r.Downtime) / float64(r.Scheduled)
		if ratio < 0 {
			ratio = 0
		}
		r.AvailabilityPct = Defined(ratio * 100)
	}

	if len(completed) > 0 {
		r.PreventiveRatioPct = Defined(float64(preventive) / float64(len(completed)) * 100)
		r.AverageCost = Defined(e.cost.Orders(completed).Total() / float64(len(completed)))
	}
	return r
}

// ── 统计周期 ──

// 周期类型
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// Period 闭区间 [From, To]
type Period struct {
	From time.Time
	To   time.Time
}

// ResolvePeriod 将周期参数解析为时间区间，缺省参数取 now 所在的日/周/月/年
// 周从周日开始
func ResolvePeriod(kind, date string, year, month int, now time.Time, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	anchor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return Period{}, fmt.Errorf("无效日期 %q: %w", date, err)
		}
		anchor = d
	}
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}

	endOfDay := func(t time.Time) time.Time { return t.AddDate(0, 0, 1).Add(-time.Nanosecond) }

	switch kind {
	case PeriodDay:
		return Period{From: anchor, To: endOfDay(anchor)}, nil
	case PeriodWeek:
		from := anchor.AddDate(0, 0, -int(anchor.Weekday()))
		return Period{From: from, To: endOfDay(from.AddDate(0, 0, 6))}, nil
	case PeriodYear:
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return Period{From: from, To: from.AddDate(1, 0, 0).Add(-time.Nanosecond)}, nil
	case PeriodMonth, "":
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		return Period{From: from, To: from.AddDate(0, 1, 0).Add(-time.Nanosecond)}, nil
	}
	return Period{}, fmt.Errorf("未知周期类型 %q", kind)
}
