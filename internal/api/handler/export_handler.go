package handler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
	viewer      ViewerFunc
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService, viewer ViewerFunc) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc, viewer: viewer}
}

// ExportCosts 导出工单成本台账
// GET /api/v1/export/costs?period=month&year=2025&month=3
func (h *ExportHandler) ExportCosts(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportCosts(c.Request.Context(), viewer, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ExportCalendar 导出维修日历
// GET /api/v1/export/calendar.ics?period=year&year=2025
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	viewer, ok := currentViewer(c, h.viewer)
	if !ok {
		return
	}
	var req dto.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	body, err := h.calendarSvc.Export(c.Request.Context(), viewer, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	name := "maintenance.ics"
	if req.Period != "" {
		name = fmt.Sprintf("maintenance-%s.ics", req.Period)
	}
	attachment(c, name)
	c.Data(http.StatusOK, icsContentType, []byte(body))
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}
