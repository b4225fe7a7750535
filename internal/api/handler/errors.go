package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/service"
	pkgerrors "maint-engine/backend/pkg/errors"
	"maint-engine/backend/pkg/response"
)

// 业务错误码
const (
	codeValidation        = 10001
	codeNotFound          = 10404
	codeInvalidCredential = 11001
	codeForbidden         = 11003
	codeTechnicianExists  = 12001
	codeCannotDeleteSelf  = 12002
	codeMachineExists     = 13001
	codePartExists        = 14001
	codeInsufficientStock = 14002
	codeSupplierExists    = 15001
	codeExportNoOrders    = 16101
	codeInvalidTransition = 17001
	codeWorkOrderExists   = 17002
	codeSequenceExhausted = 17003
	codeRequestNotPending = 18001
)

type errorRule struct {
	target error
	status int
	code   int
}

var errorRules = []errorRule{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, codeInvalidCredential},
	{service.ErrRequestForbidden, http.StatusForbidden, codeForbidden},
	{service.ErrCannotDeleteSelf, http.StatusForbidden, codeCannotDeleteSelf},

	{service.ErrWorkOrderNotFound, http.StatusNotFound, codeNotFound},
	{service.ErrRequestNotFound, http.StatusNotFound, codeNotFound},
	{service.ErrMachineNotFound, http.StatusNotFound, codeNotFound},
	{service.ErrPartNotFound, http.StatusNotFound, codeNotFound},
	{service.ErrSupplierNotFound, http.StatusNotFound, codeNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, codeNotFound},
	{service.ErrExportNoOrders, http.StatusNotFound, codeExportNoOrders},

	{service.ErrInvalidTransition, http.StatusConflict, codeInvalidTransition},
	{service.ErrWorkOrderIDExists, http.StatusConflict, codeWorkOrderExists},
	{service.ErrSequenceExhausted, http.StatusConflict, codeSequenceExhausted},
	{service.ErrRequestNotPending, http.StatusConflict, codeRequestNotPending},
	{service.ErrMachineIDExists, http.StatusConflict, codeMachineExists},
	{service.ErrPartIDExists, http.StatusConflict, codePartExists},
	{service.ErrSupplierIDExists, http.StatusConflict, codeSupplierExists},
	{service.ErrUsernameExists, http.StatusConflict, codeTechnicianExists},
}

// respondError 将业务错误映射为统一响应，未识别的错误记入 c.Errors 并返回 500
func respondError(c *gin.Context, err error) {
	var ve *pkgerrors.ValidationError
	if errors.As(err, &ve) {
		response.ErrorWithDetails(c, http.StatusBadRequest, codeValidation, "参数校验失败", ve.Error())
		return
	}
	var se *pkgerrors.InsufficientStockError
	if errors.As(err, &se) {
		response.ErrorWithDetails(c, http.StatusConflict, codeInsufficientStock, "库存不足", se.Error())
		return
	}
	var ne *pkgerrors.NotFoundError
	if errors.As(err, &ne) {
		response.NotFound(c, codeNotFound, ne.Error())
		return
	}

	for _, r := range errorRules {
		if errors.Is(err, r.target) {
			response.Error(c, r.status, r.code, r.target.Error())
			return
		}
	}

	_ = c.Error(err)
	response.InternalError(c)
}

func badRequest(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, codeValidation, "参数校验失败", err.Error())
}
