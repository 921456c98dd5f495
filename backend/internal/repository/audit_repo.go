package repository

import (
	"context"

	"gorm.io/gorm"

	"thesis-track/backend/internal/model"
)

// TransitionRepository 状态流转审计数据访问接口
type TransitionRepository interface {
	Create(ctx context.Context, t *model.ThesisTransition) error
	ListByThesis(ctx context.Context, thesisID string) ([]model.ThesisTransition, error)
}

type transitionRepo struct {
	db *gorm.DB
}

// NewTransitionRepo 创建 TransitionRepository 实例
func NewTransitionRepo(db *gorm.DB) TransitionRepository {
	return &transitionRepo{db: db}
}

func (r *transitionRepo) Create(ctx context.Context, t *model.ThesisTransition) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *transitionRepo) ListByThesis(ctx context.Context, thesisID string) ([]model.ThesisTransition, error) {
	var items []model.ThesisTransition
	err := r.db.WithContext(ctx).
		Where("thesis_id = ?", thesisID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// ReviewRepository 评审记录数据访问接口
type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	ListByThesis(ctx context.Context, thesisID string) ([]model.Review, error)
}

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepo 创建 ReviewRepository 实例
func NewReviewRepo(db *gorm.DB) ReviewRepository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepo) ListByThesis(ctx context.Context, thesisID string) ([]model.Review, error) {
	var items []model.Review
	err := r.db.WithContext(ctx).
		Where("thesis_id = ?", thesisID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
