package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/service"
	"thesis-track/backend/pkg/response"
)

// ThesisHandler 论文模块 HTTP 处理器
type ThesisHandler struct {
	thesisSvc service.ThesisService
}

// NewThesisHandler 创建 ThesisHandler
func NewThesisHandler(thesisSvc service.ThesisService) *ThesisHandler {
	return &ThesisHandler{thesisSvc: thesisSvc}
}

// CreateThesis 创建论文（学生）
// POST /api/v1/theses
func (h *ThesisHandler) CreateThesis(c *gin.Context) {
	var req dto.CreateThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	thesis, err := h.thesisSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		writeServiceError(c, codeThesisBase, err)
		return
	}

	response.Created(c, thesis)
}

// ListTheses 论文列表
// GET /api/v1/theses
func (h *ThesisHandler) ListTheses(c *gin.Context) {
	var req dto.ThesisListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.thesisSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		writeServiceError(c, codeThesisBase, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetThesis 论文详情
// GET /api/v1/theses/:id
func (h *ThesisHandler) GetThesis(c *gin.Context) {
	h.withThesis(c, h.thesisSvc.GetByID)
}

// UpdateThesis 修改标题或摘要，仅草稿与待修改状态可改
// PUT /api/v1/theses/:id
func (h *ThesisHandler) UpdateThesis(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "论文ID不能为空")
		return
	}

	var req dto.UpdateThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	thesis, err := h.thesisSvc.UpdateContent(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeServiceError(c, codeThesisBase, err)
		return
	}

	response.OK(c, thesis)
}

// SubmitThesis 提交论文
// POST /api/v1/theses/:id/submit
func (h *ThesisHandler) SubmitThesis(c *gin.Context) {
	h.withThesis(c, h.thesisSvc.Submit)
}

// BeginReview 开始评审
// POST /api/v1/theses/:id/review/begin
func (h *ThesisHandler) BeginReview(c *gin.Context) {
	h.withThesis(c, h.thesisSvc.BeginReview)
}

// RecordReviewOutcome 提交评审结论
// POST /api/v1/theses/:id/review/outcome
func (h *ThesisHandler) RecordReviewOutcome(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "论文ID不能为空")
		return
	}

	var req dto.ReviewOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.thesisSvc.RecordReviewOutcome(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeServiceError(c, codeThesisBase, err)
		return
	}

	response.OK(c, result)
}

// ReopenThesis 撤销驳回（管理员）
// POST /api/v1/theses/:id/reopen
func (h *ThesisHandler) ReopenThesis(c *gin.Context) {
	h.withThesis(c, h.thesisSvc.Reopen)
}

// ListTransitions 状态流转记录
// GET /api/v1/theses/:id/transitions
func (h *ThesisHandler) ListTransitions(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "论文ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.thesisSvc.ListTransitions(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, codeThesisBase, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListReviews 评审记录
// GET /api/v1/theses/:id/reviews
func (h *ThesisHandler) ListReviews(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "论文ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.thesisSvc.ListReviews(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, codeThesisBase, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

type thesisAction func(ctx context.Context, actor service.Actor, id string) (*dto.ThesisResponse, error)

// withThesis 只带路径参数的论文操作
func (h *ThesisHandler) withThesis(c *gin.Context, fn thesisAction) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "论文ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	thesis, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, codeThesisBase, err)
		return
	}

	response.OK(c, thesis)
}
