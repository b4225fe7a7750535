package handler

import (
	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// KPIHandler 指标与看板统计 HTTP 处理器
type KPIHandler struct {
	svc    service.KPIService
	viewer ViewerFunc
}

// NewKPIHandler 创建 KPIHandler
func NewKPIHandler(svc service.KPIService, viewer ViewerFunc) *KPIHandler {
	return &KPIHandler{svc: svc, viewer: viewer}
}

// KPIs MTBF / MTTR / 可用率 / 预防性占比 / 平均成本
// GET /api/v1/kpis?period=month&year=2025&month=3&machine_id=M1
func (h *KPIHandler) KPIs(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.KPIRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.KPIs(c.Request.Context(), viewer, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// DashboardStats 看板统计
// GET /api/v1/dashboard/stats?period=week&date=2025-03-10
func (h *KPIHandler) DashboardStats(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.DashboardStats(c.Request.Context(), viewer, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}
