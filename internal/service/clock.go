package service

import "time"

// Clock 时间来源，测试中注入固定时钟
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 使用系统时间
func SystemClock() Clock { return systemClock{} }
