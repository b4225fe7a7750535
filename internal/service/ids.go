package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ── 编号规则 ──

const (
	workOrderPrefix = "MA"
	requestPrefix   = "SOL-"
	maxSequence     = 9999
)

var workOrderIDPattern = regexp.MustCompile(`^MA-\d{2}-\d{4}$`)

// ErrSequenceExhausted 当年序号已用尽
var ErrSequenceExhausted = errors.New("编号序列已用尽")

// ValidWorkOrderID 校验 MA-YY-NNNN 格式
func ValidWorkOrderID(id string) bool {
	return workOrderIDPattern.MatchString(id)
}

// WorkOrderPrefix 指定年份的工单号前缀，如 MA-25-
func WorkOrderPrefix(t time.Time) string {
	return fmt.Sprintf("%s-%02d-", workOrderPrefix, t.Year()%100)
}

// NextWorkOrderID 取同年前缀下最大序号 + 1
func NextWorkOrderID(now time.Time, existing []string) (string, error) {
	prefix := WorkOrderPrefix(now)
	next := maxSeq(existing, prefix) + 1
	if next > maxSequence {
		return "", ErrSequenceExhausted
	}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}

// NextRequestID 取已有请求最大序号 + 1，删除留下的空号不会被复用
func NextRequestID(existing []string) (string, error) {
	next := maxSeq(existing, requestPrefix) + 1
	if next > maxSequence {
		return "", ErrSequenceExhausted
	}
	return fmt.Sprintf("%s%04d", requestPrefix, next), nil
}

func maxSeq(ids []string, prefix string) int {
	best := 0
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}
