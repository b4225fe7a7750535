package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
)

const calendarProductID = "-//maint-engine//work orders//ZH"

// CalendarService 维修日历（iCalendar）导出
type CalendarService interface {
	// Export 统计周期内可见工单的 .ics 内容，每个工单一个 VEVENT
	Export(ctx context.Context, viewer Viewer, req *dto.PeriodRequest) (string, error)
}

type calendarService struct {
	repo    *repository.Repository
	catalog Catalog
	clock   Clock
	period  periodResolver
	logger  *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(d Deps) CalendarService {
	return &calendarService{
		repo:    d.Repo,
		catalog: d.Catalog,
		clock:   d.clock(),
		period:  periodResolver{clock: d.clock(), loc: d.Engine.Location()},
		logger:  d.Logger,
	}
}

func (s *calendarService) Export(ctx context.Context, viewer Viewer, req *dto.PeriodRequest) (string, error) {
	p, err := s.period.resolve(req)
	if err != nil {
		return "", err
	}
	orders, err := ordersInPeriod(ctx, s.repo, VisibleScope(viewer).OrderMachineIDs(), p)
	if err != nil {
		s.logger.Error("查询日历工单失败", zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	stamp := s.clock.Now().UTC()
	for i := range orders {
		s.addEvent(cal, &orders[i], stamp)
	}
	return cal.Serialize(), nil
}

// addEvent 有作业区间时使用首个区间开始到最后结束，否则按主日期生成全天事件
// 两者都没有的工单不进入日历
func (s *calendarService) addEvent(cal *ics.Calendar, o *model.WorkOrder, stamp time.Time) {
	start, end, timed := orderSpan(o, stamp)
	if !timed && o.PrimaryDate == nil {
		return
	}

	event := cal.AddEvent(o.OrderID + "@maint-engine")
	event.SetDtStampTime(stamp)
	event.SetCreatedTime(o.CreatedAt)
	event.SetModifiedAt(o.UpdatedAt)
	if timed {
		event.SetStartAt(start)
		event.SetEndAt(end)
	} else {
		day := *o.PrimaryDate
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
	}

	event.SetSummary(fmt.Sprintf("[%s] %s - %s", o.OrderID, machineName(s.catalog, o.MachineID), o.Type))
	var desc strings.Builder
	fmt.Fprintf(&desc, "状态: %s\n", o.Status)
	if o.LeadTechnician != "" {
		fmt.Fprintf(&desc, "负责人: %s\n", o.LeadTechnician)
	}
	if o.Description != "" {
		desc.WriteString(o.Description)
	}
	event.SetDescription(desc.String())
	if o.Status == model.WorkOrderStatusCancelled {
		event.SetProperty(ics.ComponentPropertyStatus, "CANCELLED")
	}
}

// orderSpan 作业区间覆盖的时间段，进行中的区间以 now 为结束
func orderSpan(o *model.WorkOrder, now time.Time) (time.Time, time.Time, bool) {
	if len(o.WorkIntervals) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start := o.WorkIntervals[0].Start
	end := start
	for _, iv := range o.WorkIntervals {
		e := now
		if iv.End != nil {
			e = *iv.End
		}
		if e.After(end) {
			end = e
		}
	}
	return start, end, true
}
