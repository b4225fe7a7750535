package handler

import (
	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// RequestHandler 服务请求模块 HTTP 处理器
type RequestHandler struct {
	svc    service.RequestService
	viewer ViewerFunc
}

// NewRequestHandler 创建 RequestHandler
func NewRequestHandler(svc service.RequestService, viewer ViewerFunc) *RequestHandler {
	return &RequestHandler{svc: svc, viewer: viewer}
}

// Submit 提交服务请求
// POST /api/v1/requests
func (h *RequestHandler) Submit(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.SubmitServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Submit(c.Request.Context(), viewer, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}

// List 可见范围内的请求，最新的在前
// GET /api/v1/requests
func (h *RequestHandler) List(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	result, err := h.svc.List(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Get 请求详情
// GET /api/v1/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Reject 驳回
// POST /api/v1/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	result, err := h.svc.Reject(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Cancel 提交人撤回
// POST /api/v1/requests/:id/cancel
func (h *RequestHandler) Cancel(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	result, err := h.svc.Cancel(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Convert 转为纠正性工单
// POST /api/v1/requests/:id/convert
func (h *RequestHandler) Convert(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.ConvertServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Convert(c.Request.Context(), viewer, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}
