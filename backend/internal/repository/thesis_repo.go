package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// ThesisFilter 论文列表过滤条件
type ThesisFilter struct {
	StudentID    string
	SupervisorID string
	Status       workflow.ThesisStatus
	Page
}

// ThesisRepository 论文数据访问接口
type ThesisRepository interface {
	Create(ctx context.Context, thesis *model.Thesis) error
	GetByID(ctx context.Context, id string) (*model.Thesis, error)
	// GetForUpdate 在事务内加行锁读取
	GetForUpdate(ctx context.Context, id string) (*model.Thesis, error)
	List(ctx context.Context, filter ThesisFilter) ([]model.Thesis, int64, error)
	UpdateContent(ctx context.Context, thesis *model.Thesis) error
	// UpdateStatus 以 version 做条件更新状态相关字段
	UpdateStatus(ctx context.Context, thesis *model.Thesis) error
	// AssignSupervisor 仅当 supervisor_id 为空时写入
	AssignSupervisor(ctx context.Context, thesisID, supervisorID, actorID string) error
	SetDefenseDate(ctx context.Context, thesisID string, date time.Time, actorID string) error
}

type thesisRepo struct {
	db *gorm.DB
}

// NewThesisRepo 创建 ThesisRepository 实例
func NewThesisRepo(db *gorm.DB) ThesisRepository {
	return &thesisRepo{db: db}
}

func (r *thesisRepo) Create(ctx context.Context, thesis *model.Thesis) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(thesis).Error
}

func (r *thesisRepo) GetByID(ctx context.Context, id string) (*model.Thesis, error) {
	var thesis model.Thesis
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		Where("thesis_id = ?", id).
		First(&thesis).Error
	if err != nil {
		return nil, err
	}
	return &thesis, nil
}

func (r *thesisRepo) GetForUpdate(ctx context.Context, id string) (*model.Thesis, error) {
	var thesis model.Thesis
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("thesis_id = ?", id).
		First(&thesis).Error
	if err != nil {
		return nil, err
	}
	return &thesis, nil
}

func (r *thesisRepo) List(ctx context.Context, filter ThesisFilter) ([]model.Thesis, int64, error) {
	var theses []model.Thesis
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Thesis{})
	if filter.StudentID != "" {
		db = db.Where("student_id = ?", filter.StudentID)
	}
	if filter.SupervisorID != "" {
		db = db.Where("supervisor_id = ?", filter.SupervisorID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := filter.Page.apply(db).
		Preload("Student").
		Preload("Supervisor").
		Order("updated_at DESC").
		Find(&theses).Error; err != nil {
		return nil, 0, err
	}

	return theses, total, nil
}

func (r *thesisRepo) UpdateContent(ctx context.Context, thesis *model.Thesis) error {
	return r.casUpdate(ctx, thesis, map[string]interface{}{
		"title":      thesis.Title,
		"abstract":   thesis.Abstract,
		"updated_by": thesis.UpdatedBy,
	})
}

func (r *thesisRepo) UpdateStatus(ctx context.Context, thesis *model.Thesis) error {
	return r.casUpdate(ctx, thesis, map[string]interface{}{
		"status":        thesis.Status,
		"supervisor_id": thesis.SupervisorID,
		"submitted_at":  thesis.SubmittedAt,
		"approved_at":   thesis.ApprovedAt,
		"updated_by":    thesis.UpdatedBy,
	})
}

func (r *thesisRepo) casUpdate(ctx context.Context, thesis *model.Thesis, updates map[string]interface{}) error {
	oldVersion := thesis.Version
	updates["version"] = oldVersion + 1
	updates["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&model.Thesis{}).
		Where("thesis_id = ? AND version = ?", thesis.ThesisID, oldVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	thesis.Version = oldVersion + 1
	return nil
}

func (r *thesisRepo) AssignSupervisor(ctx context.Context, thesisID, supervisorID, actorID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Thesis{}).
		Where("thesis_id = ? AND supervisor_id IS NULL", thesisID).
		Updates(map[string]interface{}{
			"supervisor_id": supervisorID,
			"updated_by":    actorID,
			"updated_at":    time.Now().UTC(),
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *thesisRepo) SetDefenseDate(ctx context.Context, thesisID string, date time.Time, actorID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Thesis{}).
		Where("thesis_id = ?", thesisID).
		Updates(map[string]interface{}{
			"defense_date": date,
			"updated_by":   actorID,
			"updated_at":   time.Now().UTC(),
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
