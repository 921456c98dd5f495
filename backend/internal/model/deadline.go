package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"thesis-track/backend/internal/workflow"
)

// Deadline 截止日期表，对应 deadlines
// 由答辩日期推导的三条记录共享同一 BatchID
// IsActive 不声明 gorm 默认值，false 须按原值写入
type Deadline struct {
	DeadlineID   string                `gorm:"type:uuid;primaryKey"          json:"deadline_id"`
	Title        string                `gorm:"type:varchar(255);not null"    json:"title"`
	Description  *string               `gorm:"type:text"                     json:"description,omitempty"`
	Location     *string               `gorm:"type:varchar(255)"             json:"location,omitempty"`
	DeadlineDate time.Time             `gorm:"not null;index"                json:"deadline_date"`
	DeadlineType workflow.DeadlineType `gorm:"type:varchar(20);not null"     json:"deadline_type"`
	IsActive     bool                  `gorm:"not null"                      json:"is_active"`
	IsGlobal     bool                  `gorm:"not null;default:false"        json:"is_global"`
	BatchID      *string               `gorm:"type:uuid;index"               json:"batch_id,omitempty"`
	ThesisID     *string               `gorm:"type:uuid"                     json:"thesis_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Deadline) TableName() string { return "deadlines" }

// BeforeCreate 生成主键
func (d *Deadline) BeforeCreate(_ *gorm.DB) error {
	if d.DeadlineID == "" {
		d.DeadlineID = uuid.NewString()
	}
	return nil
}

// NewDeadlineBatch 将推导结果转为待持久化的记录
func NewDeadlineBatch(batch workflow.Batch, batchID string, thesisID *string, actorID string) []Deadline {
	derived := batch.All()
	items := make([]Deadline, 0, len(derived))
	for _, d := range derived {
		item := Deadline{
			Title:        d.Title,
			Description:  d.Description,
			Location:     d.Location,
			DeadlineDate: d.DeadlineDate,
			DeadlineType: d.DeadlineType,
			IsActive:     d.IsActive,
			IsGlobal:     d.IsGlobal,
			BatchID:      &batchID,
			ThesisID:     thesisID,
		}
		item.SetActor(actorID)
		items = append(items, item)
	}
	return items
}
