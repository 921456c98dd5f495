package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"thesis-track/backend/internal/service"
	"thesis-track/backend/internal/workflow"
	"thesis-track/backend/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTheses 导出论文进度表
// GET /api/v1/export/theses?status=approved
func (h *ExportHandler) ExportTheses(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !workflow.ThesisStatus(status).Valid() {
		response.BadRequest(c, 10001, "status 取值无效")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportTheses(c.Request.Context(), actor, status)
	if err != nil {
		writeServiceError(c, codeExportBase, err)
		return
	}

	writeAttachment(c, filename, xlsxContentType, buf.Bytes())
}

// ExportDeadlineCalendar 导出截止日期日历
// GET /api/v1/export/deadlines.ics
func (h *ExportHandler) ExportDeadlineCalendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportDeadlineCalendar(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, codeExportBase, err)
		return
	}

	writeAttachment(c, filename, icsContentType, buf.Bytes())
}

// writeAttachment 设置下载响应头并写出文件内容
func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, data)
}
