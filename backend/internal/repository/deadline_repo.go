package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/workflow"
)

// DeadlineFilter 截止日期列表过滤条件
type DeadlineFilter struct {
	Type       workflow.DeadlineType
	ThesisID   string
	BatchID    string
	ActiveOnly bool
	GlobalOnly bool
	From       *time.Time
	To         *time.Time
	Page
}

// DeadlineRepository 截止日期数据访问接口
type DeadlineRepository interface {
	Create(ctx context.Context, item *model.Deadline) error
	BatchCreate(ctx context.Context, items []model.Deadline) error
	GetByID(ctx context.Context, id string) (*model.Deadline, error)
	List(ctx context.Context, filter DeadlineFilter) ([]model.Deadline, int64, error)
	// Update 写入可编辑字段，BatchID 与 ThesisID 不变
	Update(ctx context.Context, item *model.Deadline) error
	Deactivate(ctx context.Context, id, actorID string) error
	Delete(ctx context.Context, id, actorID string) error
}

type deadlineRepo struct {
	db *gorm.DB
}

// NewDeadlineRepo 创建 DeadlineRepository 实例
func NewDeadlineRepo(db *gorm.DB) DeadlineRepository {
	return &deadlineRepo{db: db}
}

func (r *deadlineRepo) Create(ctx context.Context, item *model.Deadline) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// BatchCreate 单条 INSERT 写入整批记录
func (r *deadlineRepo) BatchCreate(ctx context.Context, items []model.Deadline) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *deadlineRepo) GetByID(ctx context.Context, id string) (*model.Deadline, error) {
	var d model.Deadline
	err := r.db.WithContext(ctx).
		Where("deadline_id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deadlineRepo) List(ctx context.Context, filter DeadlineFilter) ([]model.Deadline, int64, error) {
	var items []model.Deadline
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Deadline{})
	if filter.Type != "" {
		db = db.Where("deadline_type = ?", filter.Type)
	}
	if filter.ThesisID != "" {
		db = db.Where("thesis_id = ?", filter.ThesisID)
	}
	if filter.BatchID != "" {
		db = db.Where("batch_id = ?", filter.BatchID)
	}
	if filter.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	if filter.GlobalOnly {
		db = db.Where("is_global = ?", true)
	}
	if filter.From != nil {
		db = db.Where("deadline_date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("deadline_date <= ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := filter.Page.apply(db).
		Order("deadline_date ASC").
		Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *deadlineRepo) Update(ctx context.Context, item *model.Deadline) error {
	result := r.db.WithContext(ctx).
		Model(&model.Deadline{}).
		Where("deadline_id = ?", item.DeadlineID).
		Updates(map[string]interface{}{
			"title":         item.Title,
			"description":   item.Description,
			"location":      item.Location,
			"deadline_date": item.DeadlineDate,
			"deadline_type": item.DeadlineType,
			"is_active":     item.IsActive,
			"is_global":     item.IsGlobal,
			"updated_by":    item.UpdatedBy,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *deadlineRepo) Deactivate(ctx context.Context, id, actorID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Deadline{}).
		Where("deadline_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": actorID,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 软删除，同时记录删除人
func (r *deadlineRepo) Delete(ctx context.Context, id, actorID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Deadline{}).
			Where("deadline_id = ?", id).
			Update("deleted_by", actorID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("deadline_id = ?", id).Delete(&model.Deadline{}).Error
	})
}
