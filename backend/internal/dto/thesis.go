package dto

// ── 论文模块 DTO ──

// CreateThesisRequest 创建论文请求
type CreateThesisRequest struct {
	Title    string  `json:"title"    binding:"required,min=1,max=255"`
	Abstract *string `json:"abstract" binding:"omitempty,max=5000"`
}

// UpdateThesisRequest 更新论文内容请求
type UpdateThesisRequest struct {
	Title    *string `json:"title"    binding:"omitempty,min=1,max=255"`
	Abstract *string `json:"abstract" binding:"omitempty,max=5000"`
}

// ThesisListRequest 论文列表查询参数
type ThesisListRequest struct {
	PaginationRequest
	Status    string `form:"status"     binding:"omitempty,oneof=draft submitted under_review needs_revision approved declined"`
	StudentID string `form:"student_id" binding:"omitempty,uuid"`
}

// ReviewOutcomeRequest 提交评审结论请求
// grade 为 2~6 分制，低于 3 分时服务端强制按驳回处理
type ReviewOutcomeRequest struct {
	Outcome string  `json:"outcome" binding:"required,oneof=approve decline request_revision"`
	Grade   *int    `json:"grade"   binding:"omitempty,min=2,max=6"`
	Comment *string `json:"comment" binding:"omitempty,max=5000"`
}

// ThesisResponse 论文信息响应
type ThesisResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Abstract     *string    `json:"abstract,omitempty"`
	Status       string     `json:"status"`
	StudentID    string     `json:"student_id"`
	Student      *UserBrief `json:"student,omitempty"`
	SupervisorID *string    `json:"supervisor_id,omitempty"`
	Supervisor   *UserBrief `json:"supervisor,omitempty"`
	DefenseDate  *string    `json:"defense_date,omitempty"`
	SubmittedAt  *string    `json:"submitted_at,omitempty"`
	ApprovedAt   *string    `json:"approved_at,omitempty"`
	Version      int        `json:"version"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
}

// ReviewResponse 评审记录响应
type ReviewResponse struct {
	ID               string  `json:"id"`
	ThesisID         string  `json:"thesis_id"`
	ReviewerID       string  `json:"reviewer_id"`
	Outcome          string  `json:"outcome"`
	EffectiveOutcome string  `json:"effective_outcome"`
	Grade            *int    `json:"grade,omitempty"`
	Comment          *string `json:"comment,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// ReviewOutcomeResponse 提交评审结论响应
type ReviewOutcomeResponse struct {
	Thesis ThesisResponse `json:"thesis"`
	Review ReviewResponse `json:"review"`
}

// TransitionResponse 状态流转记录响应
type TransitionResponse struct {
	ID         string `json:"id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Action     string `json:"action"`
	ActorID    string `json:"actor_id"`
	Detail     string `json:"detail,omitempty"`
	CreatedAt  string `json:"created_at"`
}
