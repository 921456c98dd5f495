package handler

import (
	"github.com/gin-gonic/gin"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/service"
	"thesis-track/backend/pkg/response"
)

// CommitteeHandler 答辩委员会模块 HTTP 处理器
type CommitteeHandler struct {
	committeeSvc service.CommitteeService
}

// NewCommitteeHandler 创建 CommitteeHandler
func NewCommitteeHandler(committeeSvc service.CommitteeService) *CommitteeHandler {
	return &CommitteeHandler{committeeSvc: committeeSvc}
}

// ListMembers 论文的委员会成员
// GET /api/v1/theses/:id/committee
func (h *CommitteeHandler) ListMembers(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "论文ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.committeeSvc.ListMembers(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, codeCommitteeBase, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// AddMember 添加委员会成员
// POST /api/v1/theses/:id/committee
func (h *CommitteeHandler) AddMember(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "论文ID不能为空")
		return
	}

	var req dto.AddCommitteeMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	member, err := h.committeeSvc.AddMember(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeServiceError(c, codeCommitteeBase, err)
		return
	}

	response.Created(c, member)
}

// UpdateMember 调整成员角色或审批状态
// PUT /api/v1/committee/:member_id
func (h *CommitteeHandler) UpdateMember(c *gin.Context) {
	id := c.Param("member_id")
	if id == "" {
		response.BadRequest(c, 10001, "成员ID不能为空")
		return
	}

	var req dto.UpdateCommitteeMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	member, err := h.committeeSvc.UpdateMember(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeServiceError(c, codeCommitteeBase, err)
		return
	}

	response.OK(c, member)
}

// RemoveMember 移除委员会成员
// DELETE /api/v1/committee/:member_id
func (h *CommitteeHandler) RemoveMember(c *gin.Context) {
	id := c.Param("member_id")
	if id == "" {
		response.BadRequest(c, 10001, "成员ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.committeeSvc.RemoveMember(c.Request.Context(), actor, id); err != nil {
		writeServiceError(c, codeCommitteeBase, err)
		return
	}

	response.OK(c, nil)
}
