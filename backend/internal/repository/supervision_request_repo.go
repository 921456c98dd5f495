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

// RequestFilter 指导申请列表过滤条件
type RequestFilter struct {
	ThesisID    string
	StudentID   string
	AssistantID string
	Status      workflow.RequestStatus
	Page
}

// SupervisionRequestRepository 指导申请数据访问接口
type SupervisionRequestRepository interface {
	Create(ctx context.Context, req *model.SupervisionRequest) error
	GetByID(ctx context.Context, id string) (*model.SupervisionRequest, error)
	GetForUpdate(ctx context.Context, id string) (*model.SupervisionRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]model.SupervisionRequest, int64, error)
	// CountLive 统计论文下 requested / approved 的申请数
	CountLive(ctx context.Context, thesisID string) (int64, error)
	// HasDeclined 该指导老师是否已拒绝过此论文
	HasDeclined(ctx context.Context, thesisID, assistantID string) (bool, error)
	// FindApproved 查询论文当前已通过的申请，不存在时返回 gorm.ErrRecordNotFound
	FindApproved(ctx context.Context, thesisID string) (*model.SupervisionRequest, error)
	// Resolve 仅当申请仍为 from 状态时写入终态
	Resolve(ctx context.Context, req *model.SupervisionRequest, from workflow.RequestStatus) error
}

type supervisionRequestRepo struct {
	db *gorm.DB
}

// NewSupervisionRequestRepo 创建 SupervisionRequestRepository 实例
func NewSupervisionRequestRepo(db *gorm.DB) SupervisionRequestRepository {
	return &supervisionRequestRepo{db: db}
}

func (r *supervisionRequestRepo) Create(ctx context.Context, req *model.SupervisionRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

func (r *supervisionRequestRepo) GetByID(ctx context.Context, id string) (*model.SupervisionRequest, error) {
	var req model.SupervisionRequest
	err := r.db.WithContext(ctx).
		Preload("Thesis").
		Preload("Assistant").
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *supervisionRequestRepo) GetForUpdate(ctx context.Context, id string) (*model.SupervisionRequest, error) {
	var req model.SupervisionRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *supervisionRequestRepo) List(ctx context.Context, filter RequestFilter) ([]model.SupervisionRequest, int64, error) {
	var reqs []model.SupervisionRequest
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SupervisionRequest{})
	if filter.ThesisID != "" {
		db = db.Where("thesis_id = ?", filter.ThesisID)
	}
	if filter.StudentID != "" {
		db = db.Where("student_id = ?", filter.StudentID)
	}
	if filter.AssistantID != "" {
		db = db.Where("assistant_id = ?", filter.AssistantID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := filter.Page.apply(db).
		Preload("Thesis").
		Preload("Assistant").
		Order("created_at DESC").
		Find(&reqs).Error; err != nil {
		return nil, 0, err
	}

	return reqs, total, nil
}

func (r *supervisionRequestRepo) CountLive(ctx context.Context, thesisID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.SupervisionRequest{}).
		Where("thesis_id = ? AND status IN ?", thesisID, workflow.LiveRequestStatuses()).
		Count(&n).Error
	return n, err
}

func (r *supervisionRequestRepo) HasDeclined(ctx context.Context, thesisID, assistantID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.SupervisionRequest{}).
		Where("thesis_id = ? AND assistant_id = ? AND status = ?", thesisID, assistantID, workflow.RequestDeclined).
		Count(&n).Error
	return n > 0, err
}

func (r *supervisionRequestRepo) FindApproved(ctx context.Context, thesisID string) (*model.SupervisionRequest, error) {
	var req model.SupervisionRequest
	err := r.db.WithContext(ctx).
		Where("thesis_id = ? AND status = ?", thesisID, workflow.RequestApproved).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *supervisionRequestRepo) Resolve(ctx context.Context, req *model.SupervisionRequest, from workflow.RequestStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.SupervisionRequest{}).
		Where("request_id = ? AND status = ?", req.RequestID, from).
		Updates(map[string]interface{}{
			"status":      req.Status,
			"resolved_at": req.ResolvedAt,
			"updated_by":  req.UpdatedBy,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
