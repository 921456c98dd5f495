package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"thesis-track/backend/internal/workflow"
)

// Thesis 论文表，对应 theses
type Thesis struct {
	ThesisID     string                `gorm:"type:uuid;primaryKey"                      json:"thesis_id"`
	Title        string                `gorm:"type:varchar(255);not null"                json:"title"`
	Abstract     *string               `gorm:"type:text"                                 json:"abstract,omitempty"`
	Status       workflow.ThesisStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	StudentID    string                `gorm:"type:uuid;not null;index"                  json:"student_id"`
	SupervisorID *string               `gorm:"type:uuid;index"                           json:"supervisor_id,omitempty"`
	DefenseDate  *time.Time            `                                                 json:"defense_date,omitempty"`
	SubmittedAt  *time.Time            `                                                 json:"submitted_at,omitempty"`
	ApprovedAt   *time.Time            `                                                 json:"approved_at,omitempty"`
	VersionedModel

	// 关联
	Student    *User `gorm:"foreignKey:StudentID;references:UserID"    json:"student,omitempty"`
	Supervisor *User `gorm:"foreignKey:SupervisorID;references:UserID" json:"supervisor,omitempty"`
}

// TableName 指定表名
func (Thesis) TableName() string { return "theses" }

// BeforeCreate 生成主键
func (t *Thesis) BeforeCreate(_ *gorm.DB) error {
	if t.ThesisID == "" {
		t.ThesisID = uuid.NewString()
	}
	return nil
}

// HasSupervisor 是否已分配指导老师
func (t *Thesis) HasSupervisor() bool {
	return t.SupervisorID != nil && *t.SupervisorID != ""
}

// IsSupervisedBy 指定用户是否为该论文的指导老师
func (t *Thesis) IsSupervisedBy(userID string) bool {
	return t.HasSupervisor() && *t.SupervisorID == userID
}

// ThesisTransition 论文状态流转审计，对应 thesis_transitions
type ThesisTransition struct {
	TransitionID string                `gorm:"type:uuid;primaryKey"              json:"transition_id"`
	ThesisID     string                `gorm:"type:uuid;not null;index"          json:"thesis_id"`
	FromStatus   workflow.ThesisStatus `gorm:"type:varchar(20);not null"         json:"from_status"`
	ToStatus     workflow.ThesisStatus `gorm:"type:varchar(20);not null"         json:"to_status"`
	Action       workflow.Action       `gorm:"type:varchar(30);not null"         json:"action"`
	ActorID      string                `gorm:"type:uuid;not null"                json:"actor_id"`
	Detail       datatypes.JSON        `gorm:"type:jsonb"                        json:"detail,omitempty"`
	CreatedAt    time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (ThesisTransition) TableName() string { return "thesis_transitions" }

// BeforeCreate 生成主键
func (t *ThesisTransition) BeforeCreate(_ *gorm.DB) error {
	if t.TransitionID == "" {
		t.TransitionID = uuid.NewString()
	}
	return nil
}

// Review 评审记录，对应 thesis_reviews
// Outcome 为评审人提交的结论，EffectiveOutcome 为按成绩修正后实际生效的结论
type Review struct {
	ReviewID         string                 `gorm:"type:uuid;primaryKey"      json:"review_id"`
	ThesisID         string                 `gorm:"type:uuid;not null;index"  json:"thesis_id"`
	ReviewerID       string                 `gorm:"type:uuid;not null"        json:"reviewer_id"`
	Outcome          workflow.ReviewOutcome `gorm:"type:varchar(20);not null" json:"outcome"`
	EffectiveOutcome workflow.ReviewOutcome `gorm:"type:varchar(20);not null" json:"effective_outcome"`
	Grade            *int                   `gorm:"type:smallint"             json:"grade,omitempty"`
	Comment          *string                `gorm:"type:text"                 json:"comment,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Review) TableName() string { return "thesis_reviews" }

// BeforeCreate 生成主键
func (r *Review) BeforeCreate(_ *gorm.DB) error {
	if r.ReviewID == "" {
		r.ReviewID = uuid.NewString()
	}
	return nil
}
