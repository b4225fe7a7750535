// Package errors 定义工单引擎的错误分类：
// 校验错误（持久化前返回）、库存不足、引用对象不存在。
package errors

import (
	"errors"
	"fmt"
)

// ValidationError 业务规则校验失败，在任何写入之前返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation 创建校验错误
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError 库存扣减后将为负数
type InsufficientStockError struct {
	PartID   string
	Stock    int // 当前持久化库存
	Required int // 本次需要扣减的数量
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("备件 %s 库存不足: 当前 %d, 需要 %d, 缺口 %d",
		e.PartID, e.Stock, e.Required, e.Shortfall())
}

// Shortfall 缺口数量
func (e *InsufficientStockError) Shortfall() int {
	return e.Required - e.Stock
}

// NotFoundError 引用的设备/备件/人员/工单不存在
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s 不存在", e.Kind, e.ID)
}

// NewNotFound 创建不存在错误
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInsufficientStock 判断是否为库存不足
func IsInsufficientStock(err error) bool {
	var se *InsufficientStockError
	return errors.As(err, &se)
}

// IsNotFound 判断是否为对象不存在
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
