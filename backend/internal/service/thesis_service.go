package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// ── 论文模块业务错误 ──

var (
	ErrThesisNotFound       = pkgerrors.New(pkgerrors.ErrNotFound, "论文不存在")
	ErrThesisForbidden      = pkgerrors.New(pkgerrors.ErrForbidden, "无权操作该论文")
	ErrThesisNoSupervisor   = pkgerrors.New(pkgerrors.ErrPreconditionFailed, "论文尚未分配指导老师")
	ErrThesisConcurrentEdit = pkgerrors.New(pkgerrors.ErrConflict, "论文已被其他操作修改，请刷新后重试")
)

// ThesisService 论文生命周期业务接口
type ThesisService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateThesisRequest) (*dto.ThesisResponse, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.ThesisResponse, error)
	List(ctx context.Context, actor Actor, req *dto.ThesisListRequest) ([]dto.ThesisResponse, int64, error)
	UpdateContent(ctx context.Context, actor Actor, id string, req *dto.UpdateThesisRequest) (*dto.ThesisResponse, error)

	// Submit draft / needs_revision → submitted
	Submit(ctx context.Context, actor Actor, id string) (*dto.ThesisResponse, error)
	// BeginReview submitted → under_review，要求已分配指导老师
	BeginReview(ctx context.Context, actor Actor, id string) (*dto.ThesisResponse, error)
	// RecordReviewOutcome under_review → approved / declined / needs_revision
	RecordReviewOutcome(ctx context.Context, actor Actor, id string, req *dto.ReviewOutcomeRequest) (*dto.ReviewOutcomeResponse, error)
	// Reopen 管理员撤销驳回
	Reopen(ctx context.Context, actor Actor, id string) (*dto.ThesisResponse, error)

	ListTransitions(ctx context.Context, actor Actor, id string) ([]dto.TransitionResponse, error)
	ListReviews(ctx context.Context, actor Actor, id string) ([]dto.ReviewResponse, error)
}

type thesisService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewThesisService 创建 ThesisService 实例
func NewThesisService(repo *repository.Repository, logger *zap.Logger) ThesisService {
	return &thesisService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *thesisService) Create(ctx context.Context, actor Actor, req *dto.CreateThesisRequest) (*dto.ThesisResponse, error) {
	if !actor.IsStudent() {
		return nil, ErrThesisForbidden
	}
	if err := workflow.ValidateTitle(req.Title); err != nil {
		return nil, err
	}

	thesis := &model.Thesis{
		Title:     req.Title,
		Abstract:  req.Abstract,
		Status:    workflow.StatusDraft,
		StudentID: actor.UserID,
	}
	thesis.Version = 1
	thesis.SetActor(actor.UserID)

	if err := s.repo.Thesis.Create(ctx, thesis); err != nil {
		return nil, finish(s.logger, "创建论文", err)
	}

	return s.load(ctx, thesis.ThesisID)
}

// ────────────────────── GetByID / List ──────────────────────

func (s *thesisService) GetByID(ctx context.Context, actor Actor, id string) (*dto.ThesisResponse, error) {
	thesis, err := s.repo.Thesis.GetByID(ctx, id)
	if err != nil {
		return nil, finish(s.logger, "查询论文", notFound(err, ErrThesisNotFound), zap.String("id", id))
	}
	if !canViewThesis(actor, thesis) {
		return nil, ErrThesisForbidden
	}
	return toThesisResponse(thesis), nil
}

func (s *thesisService) List(ctx context.Context, actor Actor, req *dto.ThesisListRequest) ([]dto.ThesisResponse, int64, error) {
	filter := repository.ThesisFilter{
		Status: workflow.ThesisStatus(req.Status),
		Page:   repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()},
	}
	switch {
	case actor.IsAdmin():
		filter.StudentID = req.StudentID
	case actor.IsSupervisor():
		filter.SupervisorID = actor.UserID
		filter.StudentID = req.StudentID
	default:
		filter.StudentID = actor.UserID
	}

	theses, total, err := s.repo.Thesis.List(ctx, filter)
	if err != nil {
		return nil, 0, finish(s.logger, "列出论文", err)
	}

	result := make([]dto.ThesisResponse, 0, len(theses))
	for i := range theses {
		result = append(result, *toThesisResponse(&theses[i]))
	}
	return result, total, nil
}

// ────────────────────── UpdateContent ──────────────────────

func (s *thesisService) UpdateContent(ctx context.Context, actor Actor, id string, req *dto.UpdateThesisRequest) (*dto.ThesisResponse, error) {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		thesis, err := tx.Thesis.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrThesisNotFound)
		}
		if thesis.StudentID != actor.UserID {
			return ErrThesisForbidden
		}
		if !thesis.Status.Editable() {
			return &workflow.TransitionError{From: thesis.Status, Action: workflow.ActionEdit}
		}

		if req.Title != nil {
			if err := workflow.ValidateTitle(*req.Title); err != nil {
				return err
			}
			thesis.Title = *req.Title
		}
		if req.Abstract != nil {
			thesis.Abstract = req.Abstract
		}
		thesis.UpdatedBy = &actor.UserID

		if err := tx.Thesis.UpdateContent(ctx, thesis); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrThesisConcurrentEdit
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, finish(s.logger, "更新论文", err, zap.String("id", id))
	}

	return s.load(ctx, id)
}

// ════════════════════════════════════════════════════════════
// 状态流转
// ════════════════════════════════════════════════════════════
//
// 每次流转在单个事务内完成：
//   1. SELECT ... FOR UPDATE 锁定论文行
//   2. 鉴权 → 状态表校验 → 跨实体前置条件
//   3. 以 version 条件更新，写入流转审计
// 并发请求在行锁上排队，后到者读到新状态后重新校验

// transitionRule 单次流转的差异化部分
type transitionRule struct {
	action workflow.Action
	// authorize 鉴权，返回 nil 表示允许
	authorize func(t *model.Thesis) error
	// target 计算目标状态，为空时使用 workflow.Next
	target func(tx *repository.Repository, t *model.Thesis) (workflow.ThesisStatus, error)
	// guard 状态合法后的跨实体前置条件
	guard func(tx *repository.Repository, t *model.Thesis) error
	// apply 在状态更新后追加写入（如评审记录）
	apply  func(tx *repository.Repository, t *model.Thesis) error
	detail map[string]interface{}
}

func (s *thesisService) transition(ctx context.Context, actor Actor, id string, rule transitionRule) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		thesis, err := tx.Thesis.GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrThesisNotFound)
		}
		if err := rule.authorize(thesis); err != nil {
			return err
		}

		var to workflow.ThesisStatus
		if rule.target != nil {
			to, err = rule.target(tx, thesis)
		} else {
			to, err = workflow.Next(thesis.Status, rule.action)
		}
		if err != nil {
			return err
		}
		if rule.guard != nil {
			if err := rule.guard(tx, thesis); err != nil {
				return err
			}
		}

		from := thesis.Status
		now := s.now().UTC()
		thesis.Status = to
		thesis.UpdatedBy = &actor.UserID
		switch to {
		case workflow.StatusSubmitted:
			thesis.SubmittedAt = &now
		case workflow.StatusApproved:
			thesis.ApprovedAt = &now
		}

		if err := tx.Thesis.UpdateStatus(ctx, thesis); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrThesisConcurrentEdit
			}
			return err
		}
		if rule.apply != nil {
			if err := rule.apply(tx, thesis); err != nil {
				return err
			}
		}

		record := &model.ThesisTransition{
			ThesisID:   thesis.ThesisID,
			FromStatus: from,
			ToStatus:   to,
			Action:     rule.action,
			ActorID:    actor.UserID,
			CreatedAt:  now,
		}
		if len(rule.detail) > 0 {
			raw, err := json.Marshal(rule.detail)
			if err != nil {
				return err
			}
			record.Detail = datatypes.JSON(raw)
		}
		return tx.Transition.Create(ctx, record)
	})
	if err != nil {
		return finish(s.logger, "论文状态流转", err,
			zap.String("id", id), zap.String("action", string(rule.action)), zap.String("actor", actor.UserID))
	}

	s.logger.Info("论文状态流转",
		zap.String("id", id), zap.String("action", string(rule.action)), zap.String("actor", actor.UserID))
	return nil
}

// ────────────────────── Submit ──────────────────────

func (s *thesisService) Submit(ctx context.Context, actor Actor, id string) (*dto.ThesisResponse, error) {
	err := s.transition(ctx, actor, id, transitionRule{
		action: workflow.ActionSubmit,
		authorize: func(t *model.Thesis) error {
			if t.StudentID == actor.UserID || actor.IsAdmin() {
				return nil
			}
			return ErrThesisForbidden
		},
		guard: func(_ *repository.Repository, t *model.Thesis) error {
			return workflow.ValidateTitle(t.Title)
		},
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ────────────────────── BeginReview ──────────────────────

func (s *thesisService) BeginReview(ctx context.Context, actor Actor, id string) (*dto.ThesisResponse, error) {
	err := s.transition(ctx, actor, id, transitionRule{
		action: workflow.ActionBeginReview,
		authorize: func(t *model.Thesis) error {
			if actor.IsAdmin() || t.IsSupervisedBy(actor.UserID) {
				return nil
			}
			// 尚无导师时先交给状态表判定，submitted 状态再由 guard 返回 412
			if !t.HasSupervisor() && actor.IsSupervisor() {
				return nil
			}
			return ErrThesisForbidden
		},
		guard: func(tx *repository.Repository, t *model.Thesis) error {
			return s.checkSupervision(ctx, tx, t)
		},
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// checkSupervision 论文导师必须与唯一一条已通过的申请一致
func (s *thesisService) checkSupervision(ctx context.Context, tx *repository.Repository, t *model.Thesis) error {
	if !t.HasSupervisor() {
		return ErrThesisNoSupervisor
	}
	approved, err := tx.Request.FindApproved(ctx, t.ThesisID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("论文导师缺少对应的已通过申请", zap.String("thesis_id", t.ThesisID))
			return ErrThesisNoSupervisor
		}
		return err
	}
	if approved.AssistantID != *t.SupervisorID {
		s.logger.Error("论文导师与已通过申请不一致",
			zap.String("thesis_id", t.ThesisID),
			zap.String("supervisor_id", *t.SupervisorID),
			zap.String("approved_assistant_id", approved.AssistantID))
		return ErrThesisNoSupervisor
	}
	return nil
}

// ────────────────────── RecordReviewOutcome ──────────────────────

func (s *thesisService) RecordReviewOutcome(ctx context.Context, actor Actor, id string, req *dto.ReviewOutcomeRequest) (*dto.ReviewOutcomeResponse, error) {
	outcome := workflow.ReviewOutcome(req.Outcome)
	effective, err := workflow.EffectiveOutcome(outcome, req.Grade)
	if err != nil {
		return nil, err
	}

	review := &model.Review{
		ThesisID:         id,
		ReviewerID:       actor.UserID,
		Outcome:          outcome,
		EffectiveOutcome: effective,
		Grade:            req.Grade,
		Comment:          req.Comment,
	}
	review.SetActor(actor.UserID)

	detail := map[string]interface{}{"outcome": outcome, "effective_outcome": effective}
	if req.Grade != nil {
		detail["grade"] = *req.Grade
	}

	err = s.transition(ctx, actor, id, transitionRule{
		action: effective.Action(),
		authorize: func(t *model.Thesis) error {
			if t.IsSupervisedBy(actor.UserID) {
				return nil
			}
			return ErrThesisForbidden
		},
		apply: func(tx *repository.Repository, _ *model.Thesis) error {
			return tx.Review.Create(ctx, review)
		},
		detail: detail,
	})
	if err != nil {
		return nil, err
	}

	if effective != outcome {
		s.logger.Info("成绩低于及格线，评审结论已修正为驳回",
			zap.String("id", id), zap.String("requested", string(outcome)))
	}

	thesis, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ReviewOutcomeResponse{Thesis: *thesis, Review: toReviewResponse(review)}, nil
}

// ────────────────────── Reopen ──────────────────────

func (s *thesisService) Reopen(ctx context.Context, actor Actor, id string) (*dto.ThesisResponse, error) {
	detail := map[string]interface{}{}
	err := s.transition(ctx, actor, id, transitionRule{
		action: workflow.ActionReopen,
		authorize: func(_ *model.Thesis) error {
			if actor.IsAdmin() {
				return nil
			}
			return ErrThesisForbidden
		},
		target: func(tx *repository.Repository, t *model.Thesis) (workflow.ThesisStatus, error) {
			approved, err := tx.Request.FindApproved(ctx, t.ThesisID)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return "", err
				}
				approved = nil
			}
			supervised := approved != nil && t.IsSupervisedBy(approved.AssistantID)

			to, err := workflow.ReopenTarget(t.Status, supervised)
			if err != nil {
				return "", err
			}
			if to != workflow.StatusDraft {
				return to, nil
			}

			t.SupervisorID = nil
			t.ApprovedAt = nil
			// 回到草稿时一并撤销遗留的已通过申请，学生才能重新申请指导
			if approved != nil {
				approved.Status = workflow.RequestCancelled
				approved.ResolvedAt = timePtr(s.now().UTC())
				approved.UpdatedBy = &actor.UserID
				if err := tx.Request.Resolve(ctx, approved, workflow.RequestApproved); err != nil {
					if errors.Is(err, pkgerrors.ErrOptimisticLock) {
						return "", ErrThesisConcurrentEdit
					}
					return "", err
				}
				detail["released_request_id"] = approved.RequestID
			}
			return to, nil
		},
		detail: detail,
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// ────────────────────── 审计查询 ──────────────────────

func (s *thesisService) ListTransitions(ctx context.Context, actor Actor, id string) ([]dto.TransitionResponse, error) {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}
	items, err := s.repo.Transition.ListByThesis(ctx, id)
	if err != nil {
		return nil, finish(s.logger, "查询流转记录", err, zap.String("id", id))
	}

	result := make([]dto.TransitionResponse, 0, len(items))
	for _, t := range items {
		result = append(result, dto.TransitionResponse{
			ID:         t.TransitionID,
			FromStatus: string(t.FromStatus),
			ToStatus:   string(t.ToStatus),
			Action:     string(t.Action),
			ActorID:    t.ActorID,
			Detail:     string(t.Detail),
			CreatedAt:  dto.FormatTime(t.CreatedAt),
		})
	}
	return result, nil
}

func (s *thesisService) ListReviews(ctx context.Context, actor Actor, id string) ([]dto.ReviewResponse, error) {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}
	items, err := s.repo.Review.ListByThesis(ctx, id)
	if err != nil {
		return nil, finish(s.logger, "查询评审记录", err, zap.String("id", id))
	}

	result := make([]dto.ReviewResponse, 0, len(items))
	for i := range items {
		result = append(result, toReviewResponse(&items[i]))
	}
	return result, nil
}

// ────────────────────── 内部辅助 ──────────────────────

func (s *thesisService) load(ctx context.Context, id string) (*dto.ThesisResponse, error) {
	thesis, err := s.repo.Thesis.GetByID(ctx, id)
	if err != nil {
		return nil, finish(s.logger, "查询论文", notFound(err, ErrThesisNotFound), zap.String("id", id))
	}
	return toThesisResponse(thesis), nil
}

// canViewThesis 学生仅可查看本人论文；指导角色与管理员可查看全部
func canViewThesis(actor Actor, t *model.Thesis) bool {
	if actor.IsAdmin() || actor.IsSupervisor() {
		return true
	}
	return t.StudentID == actor.UserID
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{ID: u.UserID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func toThesisResponse(t *model.Thesis) *dto.ThesisResponse {
	return &dto.ThesisResponse{
		ID:           t.ThesisID,
		Title:        t.Title,
		Abstract:     t.Abstract,
		Status:       string(t.Status),
		StudentID:    t.StudentID,
		Student:      toUserBrief(t.Student),
		SupervisorID: t.SupervisorID,
		Supervisor:   toUserBrief(t.Supervisor),
		DefenseDate:  dto.FormatTimePtr(t.DefenseDate),
		SubmittedAt:  dto.FormatTimePtr(t.SubmittedAt),
		ApprovedAt:   dto.FormatTimePtr(t.ApprovedAt),
		Version:      t.Version,
		CreatedAt:    dto.FormatTime(t.CreatedAt),
		UpdatedAt:    dto.FormatTime(t.UpdatedAt),
	}
}

func toReviewResponse(r *model.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:               r.ReviewID,
		ThesisID:         r.ThesisID,
		ReviewerID:       r.ReviewerID,
		Outcome:          string(r.Outcome),
		EffectiveOutcome: string(r.EffectiveOutcome),
		Grade:            r.Grade,
		Comment:          r.Comment,
		CreatedAt:        dto.FormatTime(r.CreatedAt),
	}
}
