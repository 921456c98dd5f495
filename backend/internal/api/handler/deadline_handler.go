package handler

import (
	"github.com/gin-gonic/gin"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/service"
	"thesis-track/backend/pkg/response"
)

// DeadlineHandler 截止日期模块 HTTP 处理器
type DeadlineHandler struct {
	deadlineSvc service.DeadlineService
}

// NewDeadlineHandler 创建 DeadlineHandler
func NewDeadlineHandler(deadlineSvc service.DeadlineService) *DeadlineHandler {
	return &DeadlineHandler{deadlineSvc: deadlineSvc}
}

// CreateDefenseDeadlines 由答辩日期生成提交、评审、答辩三条截止日期
// POST /api/v1/deadlines/defense
func (h *DeadlineHandler) CreateDefenseDeadlines(c *gin.Context) {
	var req dto.CreateDefenseDeadlinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.deadlineSvc.CreateDefenseDeadlines(c.Request.Context(), actor, &req)
	if err != nil {
		writeServiceError(c, codeDeadlineBase, err)
		return
	}

	response.Created(c, result)
}

// CreateDeadline 创建单条截止日期，类型不限
// POST /api/v1/deadlines
func (h *DeadlineHandler) CreateDeadline(c *gin.Context) {
	var req dto.CreateDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	deadline, err := h.deadlineSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		writeServiceError(c, codeDeadlineBase, err)
		return
	}

	response.Created(c, deadline)
}

// UpdateDeadline 修改截止日期
// PUT /api/v1/deadlines/:id
func (h *DeadlineHandler) UpdateDeadline(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "截止日期ID不能为空")
		return
	}

	var req dto.UpdateDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	deadline, err := h.deadlineSvc.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeServiceError(c, codeDeadlineBase, err)
		return
	}

	response.OK(c, deadline)
}

// ListDeadlines 截止日期列表
// GET /api/v1/deadlines
func (h *DeadlineHandler) ListDeadlines(c *gin.Context) {
	var req dto.DeadlineListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.deadlineSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		writeServiceError(c, codeDeadlineBase, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// UpcomingDeadlines 即将到来的截止日期
// GET /api/v1/deadlines/upcoming?days_ahead=30
func (h *DeadlineHandler) UpcomingDeadlines(c *gin.Context) {
	var req dto.UpcomingDeadlinesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.deadlineSvc.Upcoming(c.Request.Context(), actor, &req)
	if err != nil {
		writeServiceError(c, codeDeadlineBase, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetDeadline 截止日期详情
// GET /api/v1/deadlines/:id
func (h *DeadlineHandler) GetDeadline(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "截止日期ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	deadline, err := h.deadlineSvc.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, codeDeadlineBase, err)
		return
	}

	response.OK(c, deadline)
}

// DeactivateDeadline 停用截止日期
// PUT /api/v1/deadlines/:id/deactivate
func (h *DeadlineHandler) DeactivateDeadline(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "截止日期ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.deadlineSvc.Deactivate(c.Request.Context(), actor, id); err != nil {
		writeServiceError(c, codeDeadlineBase, err)
		return
	}

	response.OK(c, nil)
}

// DeleteDeadline 删除截止日期（软删除）
// DELETE /api/v1/deadlines/:id
func (h *DeadlineHandler) DeleteDeadline(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "截止日期ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.deadlineSvc.Delete(c.Request.Context(), actor, id); err != nil {
		writeServiceError(c, codeDeadlineBase, err)
		return
	}

	response.OK(c, nil)
}
