package service

import (
	"time"

	"maint-engine/backend/internal/model"
)

// UptimeCalculator 按设备排程计算计划运行时间
type UptimeCalculator struct {
	Location   *time.Location
	DefaultDay time.Duration // 未配置排程的设备每日运行时长
}

// NewUptimeCalculator 创建计算器，loc 为空时使用 UTC
func NewUptimeCalculator(loc *time.Location, defaultDayHours float64) UptimeCalculator {
	if loc == nil {
		loc = time.UTC
	}
	return UptimeCalculator{
		Location:   loc,
		DefaultDay: time.Duration(defaultDayHours * float64(time.Hour)),
	}
}

// Scheduled 统计 [start, end] 内每台设备每个自然日的计划运行时间之和
// 停用排程的设备计 0；无排程的设备每天计 DefaultDay
func (u UptimeCalculator) Scheduled(machines []model.Machine, start, end time.Time) time.Duration {
	days := u.days(start, end)
	if len(days) == 0 {
		return 0
	}

	var total time.Duration
	for i := range machines {
		m := &machines[i]
		if m.ScheduleDisabled {
			continue
		}
		if m.Schedule == nil {
			total += time.Duration(len(days)) * u.DefaultDay
			continue
		}
		for _, wd := range days {
			total += time.Duration(m.Schedule.MinutesOn(wd)) * time.Minute
		}
	}
	return total
}

// days 列出区间内每个自然日的星期几（在计算器时区下）
func (u UptimeCalculator) days(start, end time.Time) []time.Weekday {
	loc := u.Location
	if loc == nil {
		loc = time.UTC
	}
	s := start.In(loc)
	e := end.In(loc)
	cur := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	last := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc)

	var out []time.Weekday
	for !cur.After(last) {
		out = append(out, cur.Weekday())
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}
