package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ── 设备运行排程（JSONB 自定义类型） ──

// WeekdayGroup 工作日分组：周一至周五中勾选的日期共用同一时段
type WeekdayGroup struct {
	ActiveDays []int  `json:"active_days"` // 1=周一 ... 5=周五
	StartTime  string `json:"start_time"`  // HH:MM
	EndTime    string `json:"end_time"`
}

// DayGroup 周六 / 周日分组
type DayGroup struct {
	Active    bool   `json:"active"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Schedule 设备的每周运行时段，对应 machines.schedule JSONB 列
type Schedule struct {
	Weekday  WeekdayGroup `json:"weekday"`
	Saturday DayGroup     `json:"saturday"`
	Sunday   DayGroup     `json:"sunday"`
}

// Scan 将 JSONB 解析为 Schedule
func (s *Schedule) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("Schedule.Scan: unsupported type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Value 将 Schedule 序列化为 JSONB
func (s Schedule) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GormDataType 声明列类型
func (Schedule) GormDataType() string { return "jsonb" }

// ParseClock 解析 HH:MM 为当日分钟数
func ParseClock(hhmm string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 24 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// span 计算时段分钟数，无法构成正区间时返回 0
func span(start, end string) int {
	s, ok1 := ParseClock(start)
	e, ok2 := ParseClock(end)
	if !ok1 || !ok2 || e <= s {
		return 0
	}
	return e - s
}

// HasDay 工作日分组是否包含该日
func (g WeekdayGroup) HasDay(day int) bool {
	for _, d := range g.ActiveDays {
		if d == day {
			return true
		}
	}
	return false
}

// MinutesOn 返回某个星期几的计划运行分钟数
func (s *Schedule) MinutesOn(wd time.Weekday) int {
	if s == nil {
		return 0
	}
	switch wd {
	case time.Saturday:
		if s.Saturday.Active {
			return span(s.Saturday.StartTime, s.Saturday.EndTime)
		}
	case time.Sunday:
		if s.Sunday.Active {
			return span(s.Sunday.StartTime, s.Sunday.EndTime)
		}
	default:
		if s.Weekday.HasDay(int(wd)) {
			return span(s.Weekday.StartTime, s.Weekday.EndTime)
		}
	}
	return 0
}
