package dto

// ── 答辩委员会模块 DTO ──

// AddCommitteeMemberRequest 添加委员会成员
type AddCommitteeMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role"    binding:"required,oneof=chair reviewer advisor external"`
}

// UpdateCommitteeMemberRequest 更新成员角色或审批状态
// 成员本人只能修改 has_approved
type UpdateCommitteeMemberRequest struct {
	Role        *string `json:"role"         binding:"omitempty,oneof=chair reviewer advisor external"`
	HasApproved *bool   `json:"has_approved"`
}

// CommitteeMemberResponse 委员会成员响应
type CommitteeMemberResponse struct {
	ID           string     `json:"id"`
	ThesisID     string     `json:"thesis_id"`
	UserID       string     `json:"user_id"`
	User         *UserBrief `json:"user,omitempty"`
	Role         string     `json:"role"`
	HasApproved  bool       `json:"has_approved"`
	ApprovalDate *string    `json:"approval_date,omitempty"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
}
