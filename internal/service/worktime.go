package service

import (
	"time"

	"maint-engine/backend/internal/model"
)

// ── 作业时间计算 ──

// TotalWorkDuration 已结束区间的时长之和，即实际工时
func TotalWorkDuration(intervals []model.WorkInterval) time.Duration {
	var total time.Duration
	for _, iv := range intervals {
		total += iv.Duration()
	}
	return total
}

// ElapsedDuration 实时工时：已结束区间之和，进行中的工单再加上当前区间到 now 的时长
func ElapsedDuration(order *model.WorkOrder, now time.Time) time.Duration {
	total := TotalWorkDuration(order.WorkIntervals)
	if order.Status != model.WorkOrderStatusInProgress {
		return total
	}
	if i := openIntervalIndex(order.WorkIntervals); i >= 0 {
		if start := order.WorkIntervals[i].Start; now.After(start) {
			total += now.Sub(start)
		}
	}
	return total
}

// openIntervalIndex 返回未结束区间的下标，不存在返回 -1
func openIntervalIndex(intervals []model.WorkInterval) int {
	for i := len(intervals) - 1; i >= 0; i-- {
		if intervals[i].Open() {
			return i
		}
	}
	return -1
}

// lastIntervalEnd 最后一个已结束区间的结束时间
func lastIntervalEnd(intervals []model.WorkInterval) *time.Time {
	for i := len(intervals) - 1; i >= 0; i-- {
		if intervals[i].End != nil {
			end := *intervals[i].End
			return &end
		}
	}
	return nil
}

// openInterval 追加一个从 start 开始的区间，已存在未结束区间时不做任何事
func openInterval(order *model.WorkOrder, start time.Time) bool {
	if openIntervalIndex(order.WorkIntervals) >= 0 {
		return false
	}
	order.WorkIntervals = append(order.WorkIntervals, model.WorkInterval{Start: start})
	return true
}

// closeInterval 以 end 结束当前区间，返回被关闭区间的结束时间
func closeInterval(order *model.WorkOrder, end time.Time) (time.Time, bool) {
	i := openIntervalIndex(order.WorkIntervals)
	if i < 0 {
		return time.Time{}, false
	}
	if end.Before(order.WorkIntervals[i].Start) {
		end = order.WorkIntervals[i].Start
	}
	order.WorkIntervals[i].End = &end
	return end, true
}
