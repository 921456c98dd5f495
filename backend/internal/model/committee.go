package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"thesis-track/backend/internal/workflow"
)

// CommitteeMember 答辩委员会成员表，对应 thesis_committee_members
// 同一论文中每位老师至多出现一次
type CommitteeMember struct {
	MemberID     string                 `gorm:"type:uuid;primaryKey"                       json:"member_id"`
	ThesisID     string                 `gorm:"type:uuid;not null;uniqueIndex:uq_committee" json:"thesis_id"`
	UserID       string                 `gorm:"type:uuid;not null;uniqueIndex:uq_committee" json:"user_id"`
	Role         workflow.CommitteeRole `gorm:"type:varchar(20);not null"                  json:"role"`
	HasApproved  bool                   `gorm:"not null"                                   json:"has_approved"`
	ApprovalDate *time.Time             `                                                  json:"approval_date,omitempty"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (CommitteeMember) TableName() string { return "thesis_committee_members" }

// BeforeCreate 生成主键
func (m *CommitteeMember) BeforeCreate(_ *gorm.DB) error {
	if m.MemberID == "" {
		m.MemberID = uuid.NewString()
	}
	return nil
}
