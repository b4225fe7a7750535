package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// WorkOrderHandler 工单模块 HTTP 处理器
type WorkOrderHandler struct {
	svc    service.WorkOrderService
	viewer ViewerFunc
}

// NewWorkOrderHandler 创建 WorkOrderHandler
func NewWorkOrderHandler(svc service.WorkOrderService, viewer ViewerFunc) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc, viewer: viewer}
}

// NextID 下一个可用工单号
// GET /api/v1/work-orders/next-id
func (h *WorkOrderHandler) NextID(c *gin.Context) {
	result, err := h.svc.NextID(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Create 新建工单
// POST /api/v1/work-orders
func (h *WorkOrderHandler) Create(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.SaveWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Create(c.Request.Context(), viewer, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}

// Update 整表单保存
// PUT /api/v1/work-orders/:id
func (h *WorkOrderHandler) Update(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.SaveWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Update(c.Request.Context(), viewer, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Get 工单详情
// GET /api/v1/work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
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

// List 工单列表
// GET /api/v1/work-orders?machine_id=&status=&type=&technician=&from=&to=&page=&page_size=
func (h *WorkOrderHandler) List(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.WorkOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.List(c.Request.Context(), viewer, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除工单
// DELETE /api/v1/work-orders/:id
func (h *WorkOrderHandler) Delete(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), viewer, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, nil)
}

// ── 状态流转 ──

// Start 开始作业，可携带 manual_start
// POST /api/v1/work-orders/:id/start
func (h *WorkOrderHandler) Start(c *gin.Context) {
	h.startLike(c, h.svc.Start)
}

// Resume 恢复暂停的工单
// POST /api/v1/work-orders/:id/resume
func (h *WorkOrderHandler) Resume(c *gin.Context) {
	h.startLike(c, h.svc.Resume)
}

// Pause 暂停
// POST /api/v1/work-orders/:id/pause
func (h *WorkOrderHandler) Pause(c *gin.Context) {
	h.transition(c, h.svc.Pause)
}

// Complete 完工并扣减库存
// POST /api/v1/work-orders/:id/complete
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	h.transition(c, h.svc.Complete)
}

// Cancel 取消
// POST /api/v1/work-orders/:id/cancel
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

type (
	startFunc      func(ctx context.Context, viewer service.Viewer, id string, req *dto.StartWorkOrderRequest) (*dto.WorkOrderResponse, error)
	transitionFunc func(ctx context.Context, viewer service.Viewer, id string) (*dto.WorkOrderResponse, error)
)

// startLike 请求体可为空
func (h *WorkOrderHandler) startLike(c *gin.Context, fn startFunc) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.StartWorkOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	result, err := fn(c.Request.Context(), viewer, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *WorkOrderHandler) transition(c *gin.Context, fn transitionFunc) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	result, err := fn(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// UpdatePartsUsed 替换备件清单
// PUT /api/v1/work-orders/:id/parts
func (h *WorkOrderHandler) UpdatePartsUsed(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.UpdatePartsUsedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.UpdatePartsUsed(c.Request.Context(), viewer, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// ── 看板视图 ──

// Board 活动工单看板
// GET /api/v1/work-orders/board
func (h *WorkOrderHandler) Board(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	result, err := h.svc.Board(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Assigned 分配给当前用户的未完结工单
// GET /api/v1/work-orders/assigned
func (h *WorkOrderHandler) Assigned(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	result, err := h.svc.Assigned(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}
