package dto

import "time"

// ── 截止日期模块 DTO ──

// CreateDefenseDeadlinesRequest 由答辩日期生成截止日期
type CreateDefenseDeadlinesRequest struct {
	Title       string    `json:"title"        binding:"required,max=200"`
	Description *string   `json:"description"  binding:"omitempty,max=2000"`
	Location    *string   `json:"location"     binding:"omitempty,max=255"`
	DefenseDate time.Time `json:"defense_date" binding:"required,defense_lead"`
	IsActive    *bool     `json:"is_active"`
	IsGlobal    *bool     `json:"is_global"`
	ThesisID    *string   `json:"thesis_id"    binding:"omitempty,uuid"`
}

// CreateDeadlineRequest 单独创建一条截止日期（任意类型）
type CreateDeadlineRequest struct {
	Title        string    `json:"title"         binding:"required,max=255"`
	Description  *string   `json:"description"   binding:"omitempty,max=2000"`
	Location     *string   `json:"location"      binding:"omitempty,max=255"`
	DeadlineDate time.Time `json:"deadline_date" binding:"required"`
	DeadlineType string    `json:"deadline_type" binding:"required,oneof=submission review defense revision"`
	IsActive     *bool     `json:"is_active"`
	IsGlobal     *bool     `json:"is_global"`
	ThesisID     *string   `json:"thesis_id"     binding:"omitempty,uuid"`
}

// UpdateDeadlineRequest 更新截止日期，未提供的字段保持不变
type UpdateDeadlineRequest struct {
	Title        *string    `json:"title"         binding:"omitempty,min=1,max=255"`
	Description  *string    `json:"description"   binding:"omitempty,max=2000"`
	Location     *string    `json:"location"      binding:"omitempty,max=255"`
	DeadlineDate *time.Time `json:"deadline_date"`
	DeadlineType *string    `json:"deadline_type" binding:"omitempty,oneof=submission review defense revision"`
	IsActive     *bool      `json:"is_active"`
	IsGlobal     *bool      `json:"is_global"`
}

// DeadlineListRequest 截止日期列表查询参数
type DeadlineListRequest struct {
	PaginationRequest
	Type       string `form:"deadline_type" binding:"omitempty,oneof=submission review defense revision"`
	ThesisID   string `form:"thesis_id"     binding:"omitempty,uuid"`
	BatchID    string `form:"batch_id"      binding:"omitempty,uuid"`
	ActiveOnly bool   `form:"active_only"`
}

// UpcomingDeadlinesRequest 即将到来的截止日期查询参数
type UpcomingDeadlinesRequest struct {
	DaysAhead int `form:"days_ahead" binding:"omitempty,min=1,max=365"`
}

// GetDaysAhead 默认 30 天
func (r *UpcomingDeadlinesRequest) GetDaysAhead() int {
	if r.DaysAhead <= 0 {
		return 30
	}
	return r.DaysAhead
}

// DeadlineResponse 截止日期响应
type DeadlineResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   *string `json:"description,omitempty"`
	Location      *string `json:"location,omitempty"`
	DeadlineDate  string  `json:"deadline_date"`
	DeadlineType  string  `json:"deadline_type"`
	IsActive      bool    `json:"is_active"`
	IsGlobal      bool    `json:"is_global"`
	BatchID       *string `json:"batch_id,omitempty"`
	ThesisID      *string `json:"thesis_id,omitempty"`
	IsUpcoming    bool    `json:"is_upcoming"`
	DaysRemaining int     `json:"days_remaining"`
	CreatedAt     string  `json:"created_at"`
}

// DefenseDeadlinesResponse 推导生成的一批截止日期
type DefenseDeadlinesResponse struct {
	BatchID    string           `json:"batch_id"`
	Submission DeadlineResponse `json:"submission"`
	Review     DeadlineResponse `json:"review"`
	Defense    DeadlineResponse `json:"defense"`
}
