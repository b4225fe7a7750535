package handler

import (
	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// MachineHandler 设备模块 HTTP 处理器
type MachineHandler struct {
	svc    service.MachineService
	viewer ViewerFunc
}

// NewMachineHandler 创建 MachineHandler
func NewMachineHandler(svc service.MachineService, viewer ViewerFunc) *MachineHandler {
	return &MachineHandler{svc: svc, viewer: viewer}
}

// Create 创建设备
// POST /api/v1/machines
func (h *MachineHandler) Create(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.CreateMachineRequest
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

// List 设备列表
// GET /api/v1/machines
func (h *MachineHandler) List(c *gin.Context) {
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

// Get 设备详情
// GET /api/v1/machines/:id
func (h *MachineHandler) Get(c *gin.Context) {
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

// Update 更新设备，可改名
// PUT /api/v1/machines/:id
func (h *MachineHandler) Update(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.UpdateMachineRequest
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

// Delete 删除设备
// DELETE /api/v1/machines/:id
func (h *MachineHandler) Delete(c *gin.Context) {
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
