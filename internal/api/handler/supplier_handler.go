package handler

import (
	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// SupplierHandler 供应商模块 HTTP 处理器
type SupplierHandler struct {
	svc    service.SupplierService
	viewer ViewerFunc
}

// NewSupplierHandler 创建 SupplierHandler
func NewSupplierHandler(svc service.SupplierService, viewer ViewerFunc) *SupplierHandler {
	return &SupplierHandler{svc: svc, viewer: viewer}
}

// Create POST /api/v1/suppliers
func (h *SupplierHandler) Create(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.CreateSupplierRequest
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

// List GET /api/v1/suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Get GET /api/v1/suppliers/:id
func (h *SupplierHandler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Update PUT /api/v1/suppliers/:id
func (h *SupplierHandler) Update(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.UpdateSupplierRequest
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

// Delete DELETE /api/v1/suppliers/:id
func (h *SupplierHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, nil)
}
