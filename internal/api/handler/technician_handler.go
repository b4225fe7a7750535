package handler

import (
	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// TechnicianHandler 人员管理 HTTP 处理器
type TechnicianHandler struct {
	svc    service.TechnicianService
	viewer ViewerFunc
}

// NewTechnicianHandler 创建 TechnicianHandler
func NewTechnicianHandler(svc service.TechnicianService, viewer ViewerFunc) *TechnicianHandler {
	return &TechnicianHandler{svc: svc, viewer: viewer}
}

// Create 创建用户
// POST /api/v1/technicians
func (h *TechnicianHandler) Create(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.CreateTechnicianRequest
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

// List GET /api/v1/technicians
func (h *TechnicianHandler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Get GET /api/v1/technicians/:username
func (h *TechnicianHandler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Update 更新用户，未提供密码时保留原密码
// PUT /api/v1/technicians/:username
func (h *TechnicianHandler) Update(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.UpdateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Update(c.Request.Context(), viewer, c.Param("username"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Delete 删除用户，不能删除自己
// DELETE /api/v1/technicians/:username
func (h *TechnicianHandler) Delete(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), viewer, c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, nil)
}
