package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/service"
	"thesis-track/backend/pkg/response"
)

// SupervisionHandler 指导申请模块 HTTP 处理器
type SupervisionHandler struct {
	supervisionSvc service.SupervisionService
}

// NewSupervisionHandler 创建 SupervisionHandler
func NewSupervisionHandler(supervisionSvc service.SupervisionService) *SupervisionHandler {
	return &SupervisionHandler{supervisionSvc: supervisionSvc}
}

// CreateRequest 学生为论文发起指导申请
// POST /api/v1/supervision-requests
func (h *SupervisionHandler) CreateRequest(c *gin.Context) {
	var req dto.CreateSupervisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.supervisionSvc.CreateRequest(c.Request.Context(), actor, &req)
	if err != nil {
		writeServiceError(c, codeSupervisionBase, err)
		return
	}

	response.Created(c, result)
}

// ListRequests 指导申请列表
// GET /api/v1/supervision-requests
func (h *SupervisionHandler) ListRequests(c *gin.Context) {
	var req dto.SupervisionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.supervisionSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		writeServiceError(c, codeSupervisionBase, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetRequest 指导申请详情
// GET /api/v1/supervision-requests/:id
func (h *SupervisionHandler) GetRequest(c *gin.Context) {
	h.withRequest(c, h.supervisionSvc.GetByID)
}

// ApproveRequest 通过申请并绑定指导老师
// POST /api/v1/supervision-requests/:id/approve
func (h *SupervisionHandler) ApproveRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.supervisionSvc.Approve(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, codeSupervisionBase, err)
		return
	}

	response.OK(c, result)
}

// DeclineRequest 拒绝申请
// POST /api/v1/supervision-requests/:id/decline
func (h *SupervisionHandler) DeclineRequest(c *gin.Context) {
	h.withRequest(c, h.supervisionSvc.Decline)
}

// CancelRequest 学生撤回申请
// POST /api/v1/supervision-requests/:id/cancel
func (h *SupervisionHandler) CancelRequest(c *gin.Context) {
	h.withRequest(c, h.supervisionSvc.Cancel)
}

// ListSupervisors 可选指导老师
// GET /api/v1/supervisors
func (h *SupervisionHandler) ListSupervisors(c *gin.Context) {
	list, err := h.supervisionSvc.ListSupervisors(c.Request.Context())
	if err != nil {
		writeServiceError(c, codeSupervisionBase, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

type requestAction func(ctx context.Context, actor service.Actor, id string) (*dto.SupervisionResponse, error)

func (h *SupervisionHandler) withRequest(c *gin.Context, fn requestAction) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		writeServiceError(c, codeSupervisionBase, err)
		return
	}

	response.OK(c, result)
}
