package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// ── 截止日期模块业务错误 ──

var (
	ErrDeadlineNotFound  = pkgerrors.New(pkgerrors.ErrNotFound, "截止日期不存在")
	ErrDeadlineForbidden = pkgerrors.New(pkgerrors.ErrForbidden, "无权管理截止日期")
	ErrDeadlineInBatch   = pkgerrors.New(pkgerrors.ErrPreconditionFailed, "由答辩日期推导的截止日期不能单独改期或改类型")
)

// DeadlineService 截止日期业务接口
type DeadlineService interface {
	// CreateDefenseDeadlines 由答辩日期推导并整批写入三条截止日期
	CreateDefenseDeadlines(ctx context.Context, actor Actor, req *dto.CreateDefenseDeadlinesRequest) (*dto.DefenseDeadlinesResponse, error)
	// Create 单独创建一条任意类型的截止日期
	Create(ctx context.Context, actor Actor, req *dto.CreateDeadlineRequest) (*dto.DeadlineResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateDeadlineRequest) (*dto.DeadlineResponse, error)
	List(ctx context.Context, actor Actor, req *dto.DeadlineListRequest) ([]dto.DeadlineResponse, int64, error)
	Upcoming(ctx context.Context, actor Actor, req *dto.UpcomingDeadlinesRequest) ([]dto.DeadlineResponse, error)
	GetByID(ctx context.Context, actor Actor, id string) (*dto.DeadlineResponse, error)
	Deactivate(ctx context.Context, actor Actor, id string) error
	Delete(ctx context.Context, actor Actor, id string) error
}

type deadlineService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewDeadlineService 创建 DeadlineService 实例
func NewDeadlineService(repo *repository.Repository, logger *zap.Logger) DeadlineService {
	return &deadlineService{repo: repo, logger: logger, now: time.Now}
}

// ════════════════════════════════════════════════════════════
// CreateDefenseDeadlines
// ════════════════════════════════════════════════════════════
//
// 提交截止 = 答辩 - 7 天，评审截止 = 答辩 - 2 天
// 三条记录与论文答辩日期（如指定论文）在同一事务内写入

func (s *deadlineService) CreateDefenseDeadlines(ctx context.Context, actor Actor, req *dto.CreateDefenseDeadlinesRequest) (*dto.DefenseDeadlinesResponse, error) {
	if !actor.IsAdmin() && !actor.IsSupervisor() {
		return nil, ErrDeadlineForbidden
	}

	in := workflow.DefenseInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		DefenseDate: req.DefenseDate,
		IsActive:    true,
		IsGlobal:    req.ThesisID == nil,
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	if req.IsGlobal != nil {
		in.IsGlobal = *req.IsGlobal
	}

	batch, err := workflow.DeriveFromDefense(in, s.now())
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	items := model.NewDeadlineBatch(batch, batchID, req.ThesisID, actor.UserID)

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if req.ThesisID != nil {
			if err := tx.Thesis.SetDefenseDate(ctx, *req.ThesisID, batch.Defense.DeadlineDate, actor.UserID); err != nil {
				return notFound(err, ErrThesisNotFound)
			}
		}
		return tx.Deadline.BatchCreate(ctx, items)
	})
	if err != nil {
		return nil, finish(s.logger, "创建答辩截止日期", err, zap.String("batch_id", batchID))
	}

	s.logger.Info("创建答辩截止日期",
		zap.String("batch_id", batchID),
		zap.Time("defense_date", batch.Defense.DeadlineDate),
		zap.String("actor", actor.UserID))

	at := s.now()
	return &dto.DefenseDeadlinesResponse{
		BatchID:    batchID,
		Submission: toDeadlineResponse(&items[0], at),
		Review:     toDeadlineResponse(&items[1], at),
		Defense:    toDeadlineResponse(&items[2], at),
	}, nil
}

// ────────────────────── Create / Update ──────────────────────

func (s *deadlineService) Create(ctx context.Context, actor Actor, req *dto.CreateDeadlineRequest) (*dto.DeadlineResponse, error) {
	if !actor.IsAdmin() && !actor.IsSupervisor() {
		return nil, ErrDeadlineForbidden
	}
	if err := workflow.ValidateDeadlineTitle(req.Title); err != nil {
		return nil, err
	}
	kind := workflow.DeadlineType(req.DeadlineType)
	if !kind.Valid() {
		return nil, pkgerrors.New(pkgerrors.ErrValidation, "未知的截止日期类型")
	}
	if err := workflow.CheckDeadlineDate(req.DeadlineDate, s.now()); err != nil {
		return nil, err
	}

	item := &model.Deadline{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Location:     req.Location,
		DeadlineDate: req.DeadlineDate.UTC(),
		DeadlineType: kind,
		IsActive:     true,
		IsGlobal:     req.ThesisID == nil,
		ThesisID:     req.ThesisID,
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if req.IsGlobal != nil {
		item.IsGlobal = *req.IsGlobal
	}
	item.SetActor(actor.UserID)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if req.ThesisID != nil {
			if _, err := tx.Thesis.GetByID(ctx, *req.ThesisID); err != nil {
				return notFound(err, ErrThesisNotFound)
			}
		}
		return tx.Deadline.Create(ctx, item)
	})
	if err != nil {
		return nil, finish(s.logger, "创建截止日期", err, zap.String("type", req.DeadlineType))
	}

	s.logger.Info("创建截止日期",
		zap.String("id", item.DeadlineID), zap.String("type", string(kind)), zap.String("actor", actor.UserID))
	resp := toDeadlineResponse(item, s.now())
	return &resp, nil
}

// Update 同批次推导出的记录只允许修改描述性字段，日期与类型由答辩日期决定
func (s *deadlineService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateDeadlineRequest) (*dto.DeadlineResponse, error) {
	if !actor.IsAdmin() && !actor.IsSupervisor() {
		return nil, ErrDeadlineForbidden
	}

	var updated *model.Deadline
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		d, err := tx.Deadline.GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrDeadlineNotFound)
		}

		dateChanged := req.DeadlineDate != nil && !req.DeadlineDate.Equal(d.DeadlineDate)
		typeChanged := req.DeadlineType != nil && workflow.DeadlineType(*req.DeadlineType) != d.DeadlineType
		if d.BatchID != nil && (dateChanged || typeChanged) {
			return ErrDeadlineInBatch
		}

		if req.Title != nil {
			if err := workflow.ValidateDeadlineTitle(*req.Title); err != nil {
				return err
			}
			d.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			d.Description = req.Description
		}
		if req.Location != nil {
			d.Location = req.Location
		}
		if dateChanged {
			if err := workflow.CheckDeadlineDate(*req.DeadlineDate, s.now()); err != nil {
				return err
			}
			d.DeadlineDate = req.DeadlineDate.UTC()
		}
		if typeChanged {
			kind := workflow.DeadlineType(*req.DeadlineType)
			if !kind.Valid() {
				return pkgerrors.New(pkgerrors.ErrValidation, "未知的截止日期类型")
			}
			d.DeadlineType = kind
		}
		if req.IsActive != nil {
			d.IsActive = *req.IsActive
		}
		if req.IsGlobal != nil {
			d.IsGlobal = *req.IsGlobal
		}
		d.UpdatedBy = &actor.UserID

		if err := tx.Deadline.Update(ctx, d); err != nil {
			return notFound(err, ErrDeadlineNotFound)
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, finish(s.logger, "更新截止日期", err, zap.String("id", id))
	}

	s.logger.Info("更新截止日期", zap.String("id", id), zap.String("actor", actor.UserID))
	resp := toDeadlineResponse(updated, s.now())
	return &resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *deadlineService) List(ctx context.Context, actor Actor, req *dto.DeadlineListRequest) ([]dto.DeadlineResponse, int64, error) {
	filter := repository.DeadlineFilter{
		Type:       workflow.DeadlineType(req.Type),
		ThesisID:   req.ThesisID,
		BatchID:    req.BatchID,
		ActiveOnly: req.ActiveOnly,
		Page:       repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()},
	}
	if actor.IsStudent() {
		filter.ActiveOnly = true
		filter.GlobalOnly = true
	}

	items, total, err := s.repo.Deadline.List(ctx, filter)
	if err != nil {
		return nil, 0, finish(s.logger, "列出截止日期", err)
	}
	return s.toResponses(items), total, nil
}

func (s *deadlineService) Upcoming(ctx context.Context, actor Actor, req *dto.UpcomingDeadlinesRequest) ([]dto.DeadlineResponse, error) {
	from := s.now().UTC()
	to := from.AddDate(0, 0, req.GetDaysAhead())
	filter := repository.DeadlineFilter{
		ActiveOnly: true,
		GlobalOnly: actor.IsStudent(),
		From:       &from,
		To:         &to,
	}

	items, _, err := s.repo.Deadline.List(ctx, filter)
	if err != nil {
		return nil, finish(s.logger, "查询即将到来的截止日期", err)
	}
	return s.toResponses(items), nil
}

func (s *deadlineService) GetByID(ctx context.Context, actor Actor, id string) (*dto.DeadlineResponse, error) {
	d, err := s.repo.Deadline.GetByID(ctx, id)
	if err != nil {
		return nil, finish(s.logger, "查询截止日期", notFound(err, ErrDeadlineNotFound), zap.String("id", id))
	}
	// 学生不可见的记录按不存在处理
	if actor.IsStudent() && (!d.IsActive || !d.IsGlobal) {
		return nil, ErrDeadlineNotFound
	}
	resp := toDeadlineResponse(d, s.now())
	return &resp, nil
}

// ────────────────────── 管理 ──────────────────────

func (s *deadlineService) Deactivate(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrDeadlineForbidden
	}
	if err := s.repo.Deadline.Deactivate(ctx, id, actor.UserID); err != nil {
		return finish(s.logger, "停用截止日期", notFound(err, ErrDeadlineNotFound), zap.String("id", id))
	}
	s.logger.Info("停用截止日期", zap.String("id", id), zap.String("actor", actor.UserID))
	return nil
}

func (s *deadlineService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrDeadlineForbidden
	}
	if err := s.repo.Deadline.Delete(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDeadlineNotFound
		}
		return finish(s.logger, "删除截止日期", err, zap.String("id", id))
	}
	s.logger.Info("删除截止日期", zap.String("id", id), zap.String("actor", actor.UserID))
	return nil
}

// ── 内部辅助 ──

func (s *deadlineService) toResponses(items []model.Deadline) []dto.DeadlineResponse {
	at := s.now()
	result := make([]dto.DeadlineResponse, 0, len(items))
	for i := range items {
		result = append(result, toDeadlineResponse(&items[i], at))
	}
	return result
}

func toDeadlineResponse(d *model.Deadline, at time.Time) dto.DeadlineResponse {
	return dto.DeadlineResponse{
		ID:            d.DeadlineID,
		Title:         d.Title,
		Description:   d.Description,
		Location:      d.Location,
		DeadlineDate:  dto.FormatTime(d.DeadlineDate),
		DeadlineType:  string(d.DeadlineType),
		IsActive:      d.IsActive,
		IsGlobal:      d.IsGlobal,
		BatchID:       d.BatchID,
		ThesisID:      d.ThesisID,
		IsUpcoming:    workflow.IsUpcoming(d.DeadlineDate, at),
		DaysRemaining: workflow.DaysRemaining(d.DeadlineDate, at),
		CreatedAt:     dto.FormatTime(d.CreatedAt),
	}
}
