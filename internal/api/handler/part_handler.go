package handler

import (
	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// PartHandler 备件模块 HTTP 处理器
type PartHandler struct {
	svc    service.PartService
	viewer ViewerFunc
}

// NewPartHandler 创建 PartHandler
func NewPartHandler(svc service.PartService, viewer ViewerFunc) *PartHandler {
	return &PartHandler{svc: svc, viewer: viewer}
}

// Create 创建备件
// POST /api/v1/parts
func (h *PartHandler) Create(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.CreatePartRequest
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

// List 备件列表
// GET /api/v1/parts?machine_id=&low_stock=true
func (h *PartHandler) List(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.PartListRequest
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

// LowStock 低库存备件
// GET /api/v1/parts/low-stock
func (h *PartHandler) LowStock(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	result, err := h.svc.ListLowStock(c.Request.Context(), viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Get 备件详情
// GET /api/v1/parts/:id
func (h *PartHandler) Get(c *gin.Context) {
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

// Update 更新备件
// PUT /api/v1/parts/:id
func (h *PartHandler) Update(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.UpdatePartRequest
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

// AdjustStock 手工出入库
// POST /api/v1/parts/:id/adjust
func (h *PartHandler) AdjustStock(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.AdjustStock(c.Request.Context(), viewer, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除备件
// DELETE /api/v1/parts/:id
func (h *PartHandler) Delete(c *gin.Context) {
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
