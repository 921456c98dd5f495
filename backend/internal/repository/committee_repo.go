package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thesis-track/backend/internal/model"
)

// CommitteeRepository 答辩委员会数据访问接口
type CommitteeRepository interface {
	Create(ctx context.Context, member *model.CommitteeMember) error
	GetByID(ctx context.Context, id string) (*model.CommitteeMember, error)
	GetForUpdate(ctx context.Context, id string) (*model.CommitteeMember, error)
	ListByThesis(ctx context.Context, thesisID string) ([]model.CommitteeMember, error)
	Exists(ctx context.Context, thesisID, userID string) (bool, error)
	// Update 写入角色与审批状态
	Update(ctx context.Context, member *model.CommitteeMember) error
	Delete(ctx context.Context, id string) error
}

type committeeRepo struct {
	db *gorm.DB
}

// NewCommitteeRepo 创建 CommitteeRepository 实例
func NewCommitteeRepo(db *gorm.DB) CommitteeRepository {
	return &committeeRepo{db: db}
}

func (r *committeeRepo) Create(ctx context.Context, member *model.CommitteeMember) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

func (r *committeeRepo) GetByID(ctx context.Context, id string) (*model.CommitteeMember, error) {
	var m model.CommitteeMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("member_id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *committeeRepo) GetForUpdate(ctx context.Context, id string) (*model.CommitteeMember, error) {
	var m model.CommitteeMember
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *committeeRepo) ListByThesis(ctx context.Context, thesisID string) ([]model.CommitteeMember, error) {
	var members []model.CommitteeMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("thesis_id = ?", thesisID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *committeeRepo) Exists(ctx context.Context, thesisID, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.CommitteeMember{}).
		Where("thesis_id = ? AND user_id = ?", thesisID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *committeeRepo) Update(ctx context.Context, member *model.CommitteeMember) error {
	result := r.db.WithContext(ctx).
		Model(&model.CommitteeMember{}).
		Where("member_id = ?", member.MemberID).
		Updates(map[string]interface{}{
			"role":          member.Role,
			"has_approved":  member.HasApproved,
			"approval_date": member.ApprovalDate,
			"updated_by":    member.UpdatedBy,
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

func (r *committeeRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("member_id = ?", id).
		Delete(&model.CommitteeMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
