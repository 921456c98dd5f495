package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"thesis-track/backend/internal/workflow"
)

// SupervisionRequest 指导申请表，对应 supervision_requests
type SupervisionRequest struct {
	RequestID   string                 `gorm:"type:uuid;primaryKey"                           json:"request_id"`
	ThesisID    string                 `gorm:"type:uuid;not null;index"                       json:"thesis_id"`
	StudentID   string                 `gorm:"type:uuid;not null"                             json:"student_id"`
	AssistantID string                 `gorm:"type:uuid;not null;index"                       json:"assistant_id"`
	Status      workflow.RequestStatus `gorm:"type:varchar(20);not null;default:'requested'" json:"status"`
	ResolvedAt  *time.Time             `                                                      json:"resolved_at,omitempty"`
	BaseModel

	// 关联
	Thesis    *Thesis `gorm:"foreignKey:ThesisID;references:ThesisID"    json:"thesis,omitempty"`
	Assistant *User   `gorm:"foreignKey:AssistantID;references:UserID"    json:"assistant,omitempty"`
}

// TableName 指定表名
func (SupervisionRequest) TableName() string { return "supervision_requests" }

// BeforeCreate 生成主键
func (r *SupervisionRequest) BeforeCreate(_ *gorm.DB) error {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	return nil
}
