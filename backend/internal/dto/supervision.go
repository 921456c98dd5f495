package dto

// ── 指导申请模块 DTO ──

// CreateSupervisionRequest 发起指导申请
type CreateSupervisionRequest struct {
	ThesisID    string `json:"thesis_id"    binding:"required,uuid"`
	AssistantID string `json:"assistant_id" binding:"required,uuid"`
}

// SupervisionListRequest 指导申请列表查询参数
type SupervisionListRequest struct {
	PaginationRequest
	ThesisID    string `form:"thesis_id"    binding:"omitempty,uuid"`
	AssistantID string `form:"assistant_id" binding:"omitempty,uuid"`
	Status      string `form:"status"       binding:"omitempty,oneof=requested approved declined cancelled"`
}

// SupervisionResponse 指导申请响应
type SupervisionResponse struct {
	ID          string     `json:"id"`
	ThesisID    string     `json:"thesis_id"`
	ThesisTitle string     `json:"thesis_title,omitempty"`
	StudentID   string     `json:"student_id"`
	AssistantID string     `json:"assistant_id"`
	Assistant   *UserBrief `json:"assistant,omitempty"`
	Status      string     `json:"status"`
	ResolvedAt  *string    `json:"resolved_at,omitempty"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// ApproveResponse 审批通过响应：申请与更新后的论文
type ApproveResponse struct {
	Request SupervisionResponse `json:"request"`
	Thesis  ThesisResponse      `json:"thesis"`
}
