package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// ── 指导申请模块业务错误 ──

var (
	ErrRequestNotFound        = pkgerrors.New(pkgerrors.ErrNotFound, "指导申请不存在")
	ErrRequestForbidden       = pkgerrors.New(pkgerrors.ErrForbidden, "无权操作该指导申请")
	ErrRequestAlreadyLive     = pkgerrors.New(pkgerrors.ErrConflict, "该论文已有进行中的指导申请或已分配指导老师")
	ErrRequestInvalidAssist   = pkgerrors.New(pkgerrors.ErrValidation, "指导老师不存在或不具备指导资格")
	ErrRequestPreviouslyDecl  = pkgerrors.New(pkgerrors.ErrPreconditionFailed, "该指导老师已拒绝过此论文")
	ErrRequestSupervisorTaken = pkgerrors.New(pkgerrors.ErrConflict, "论文已被其他指导老师接收")
	ErrRequestResolvedByOther = pkgerrors.New(pkgerrors.ErrConflict, "申请已被并发处理")
	ErrRequestAlreadyResolved = pkgerrors.New(pkgerrors.ErrAlreadyTerminal, "申请已处理，不能再变更")
)

// SupervisionService 指导申请仲裁业务接口
//
// 同一论文任一时刻最多一条进行中的申请（requested / approved），
// 且 theses.supervisor_id 仅在存在唯一一条 approved 申请时非空
type SupervisionService interface {
	CreateRequest(ctx context.Context, actor Actor, req *dto.CreateSupervisionRequest) (*dto.SupervisionResponse, error)
	// Approve 单事务内通过申请并写入论文指导老师
	Approve(ctx context.Context, actor Actor, requestID string) (*dto.ApproveResponse, error)
	Decline(ctx context.Context, actor Actor, requestID string) (*dto.SupervisionResponse, error)
	Cancel(ctx context.Context, actor Actor, requestID string) (*dto.SupervisionResponse, error)
	GetByID(ctx context.Context, actor Actor, requestID string) (*dto.SupervisionResponse, error)
	List(ctx context.Context, actor Actor, req *dto.SupervisionListRequest) ([]dto.SupervisionResponse, int64, error)
	// ListSupervisors 可选的指导老师列表
	ListSupervisors(ctx context.Context) ([]dto.UserBrief, error)
}

type supervisionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSupervisionService 创建 SupervisionService 实例
func NewSupervisionService(repo *repository.Repository, logger *zap.Logger) SupervisionService {
	return &supervisionService{repo: repo, logger: logger}
}

// ────────────────────── CreateRequest ──────────────────────

func (s *supervisionService) CreateRequest(ctx context.Context, actor Actor, req *dto.CreateSupervisionRequest) (*dto.SupervisionResponse, error) {
	request := &model.SupervisionRequest{
		ThesisID:    req.ThesisID,
		StudentID:   actor.UserID,
		AssistantID: req.AssistantID,
		Status:      workflow.RequestRequested,
	}
	request.SetActor(actor.UserID)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 锁定论文行，同一论文的申请在此排队
		thesis, err := tx.Thesis.GetForUpdate(ctx, req.ThesisID)
		if err != nil {
			return notFound(err, ErrThesisNotFound)
		}
		if thesis.StudentID != actor.UserID {
			return ErrRequestForbidden
		}
		if thesis.Status.IsTerminal() {
			return &workflow.TransitionError{From: thesis.Status, Action: workflow.ActionRequestSupervision}
		}

		assistant, err := tx.User.GetByID(ctx, req.AssistantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestInvalidAssist
			}
			return err
		}
		if !assistant.IsActive || !model.IsSupervisorRole(assistant.Role) {
			return ErrRequestInvalidAssist
		}

		declined, err := tx.Request.HasDeclined(ctx, req.ThesisID, req.AssistantID)
		if err != nil {
			return err
		}
		if declined {
			return ErrRequestPreviouslyDecl
		}

		if thesis.HasSupervisor() {
			return ErrRequestAlreadyLive
		}
		live, err := tx.Request.CountLive(ctx, req.ThesisID)
		if err != nil {
			return err
		}
		if live > 0 {
			return ErrRequestAlreadyLive
		}

		return tx.Request.Create(ctx, request)
	})
	if err != nil {
		if !pkgerrors.IsKind(err) && errors.Is(pkgerrors.TranslateDB(err), pkgerrors.ErrConflict) {
			// 唯一索引兜底拦截
			s.logger.Warn("并发创建指导申请被拒绝", zap.String("thesis_id", req.ThesisID))
			return nil, ErrRequestAlreadyLive
		}
		return nil, finish(s.logger, "创建指导申请", err, zap.String("thesis_id", req.ThesisID))
	}

	s.logger.Info("创建指导申请",
		zap.String("request_id", request.RequestID),
		zap.String("thesis_id", request.ThesisID),
		zap.String("assistant_id", request.AssistantID))

	return s.load(ctx, request.RequestID)
}

// ════════════════════════════════════════════════════════════
// Approve
// ════════════════════════════════════════════════════════════
//
// 单事务：
//   1. 锁定申请，非 requested → AlreadyTerminal
//   2. 锁定论文
//   3. supervisor_id 为空时写入，否则 Conflict
//   4. 申请仍为 requested 时置为 approved，否则 Conflict
// 任一步失败整体回滚，落败方的申请与论文均保持不变

func (s *supervisionService) Approve(ctx context.Context, actor Actor, requestID string) (*dto.ApproveResponse, error) {
	var thesisID string

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		request, err := tx.Request.GetForUpdate(ctx, requestID)
		if err != nil {
			return notFound(err, ErrRequestNotFound)
		}
		if request.AssistantID != actor.UserID && !actor.IsAdmin() {
			return ErrRequestForbidden
		}
		if err := workflow.Resolve(request.Status, workflow.RequestApproved); err != nil {
			return err
		}
		thesisID = request.ThesisID

		thesis, err := tx.Thesis.GetForUpdate(ctx, request.ThesisID)
		if err != nil {
			return notFound(err, ErrThesisNotFound)
		}
		if thesis.Status.IsTerminal() {
			return &workflow.TransitionError{From: thesis.Status, Action: workflow.ActionAssignSupervisor}
		}
		if thesis.HasSupervisor() {
			return ErrRequestSupervisorTaken
		}

		if err := tx.Thesis.AssignSupervisor(ctx, thesis.ThesisID, request.AssistantID, actor.UserID); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrRequestSupervisorTaken
			}
			return err
		}

		request.Status = workflow.RequestApproved
		request.ResolvedAt = timePtr(nowUTC())
		request.UpdatedBy = &actor.UserID
		if err := tx.Request.Resolve(ctx, request, workflow.RequestRequested); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrRequestResolvedByOther
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			s.logger.Warn("审批指导申请冲突",
				zap.String("request_id", requestID), zap.String("actor", actor.UserID), zap.Error(err))
		}
		return nil, finish(s.logger, "审批指导申请", err, zap.String("request_id", requestID))
	}

	s.logger.Info("指导申请已通过",
		zap.String("request_id", requestID), zap.String("thesis_id", thesisID), zap.String("actor", actor.UserID))

	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	thesis, err := s.repo.Thesis.GetByID(ctx, thesisID)
	if err != nil {
		return nil, finish(s.logger, "查询论文", notFound(err, ErrThesisNotFound), zap.String("id", thesisID))
	}
	return &dto.ApproveResponse{Request: *request, Thesis: *toThesisResponse(thesis)}, nil
}

// ────────────────────── Decline / Cancel ──────────────────────

func (s *supervisionService) Decline(ctx context.Context, actor Actor, requestID string) (*dto.SupervisionResponse, error) {
	return s.resolve(ctx, actor, requestID, workflow.RequestDeclined, func(r *model.SupervisionRequest) bool {
		return r.AssistantID == actor.UserID || actor.IsAdmin()
	})
}

func (s *supervisionService) Cancel(ctx context.Context, actor Actor, requestID string) (*dto.SupervisionResponse, error) {
	return s.resolve(ctx, actor, requestID, workflow.RequestCancelled, func(r *model.SupervisionRequest) bool {
		return r.StudentID == actor.UserID || actor.IsAdmin()
	})
}

// resolve 将 requested 申请置为终态，不影响论文
func (s *supervisionService) resolve(ctx context.Context, actor Actor, requestID string, to workflow.RequestStatus, allowed func(*model.SupervisionRequest) bool) (*dto.SupervisionResponse, error) {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		request, err := tx.Request.GetForUpdate(ctx, requestID)
		if err != nil {
			return notFound(err, ErrRequestNotFound)
		}
		if !allowed(request) {
			return ErrRequestForbidden
		}
		if err := workflow.Resolve(request.Status, to); err != nil {
			return err
		}

		request.Status = to
		request.ResolvedAt = timePtr(nowUTC())
		request.UpdatedBy = &actor.UserID
		if err := tx.Request.Resolve(ctx, request, workflow.RequestRequested); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return ErrRequestAlreadyResolved
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, finish(s.logger, "处理指导申请", err,
			zap.String("request_id", requestID), zap.String("to", string(to)))
	}

	s.logger.Info("指导申请已处理",
		zap.String("request_id", requestID), zap.String("status", string(to)), zap.String("actor", actor.UserID))
	return s.load(ctx, requestID)
}

// ────────────────────── 查询 ──────────────────────

func (s *supervisionService) GetByID(ctx context.Context, actor Actor, requestID string) (*dto.SupervisionResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		return nil, finish(s.logger, "查询指导申请", notFound(err, ErrRequestNotFound), zap.String("request_id", requestID))
	}
	if !actor.IsAdmin() && request.StudentID != actor.UserID && request.AssistantID != actor.UserID {
		return nil, ErrRequestForbidden
	}
	return toSupervisionResponse(request), nil
}

func (s *supervisionService) List(ctx context.Context, actor Actor, req *dto.SupervisionListRequest) ([]dto.SupervisionResponse, int64, error) {
	filter := repository.RequestFilter{
		ThesisID:    req.ThesisID,
		AssistantID: req.AssistantID,
		Status:      workflow.RequestStatus(req.Status),
		Page:        repository.Page{Offset: req.GetOffset(), Limit: req.GetPageSize()},
	}
	switch {
	case actor.IsAdmin():
	case actor.IsSupervisor():
		filter.AssistantID = actor.UserID
	default:
		filter.StudentID = actor.UserID
	}

	items, total, err := s.repo.Request.List(ctx, filter)
	if err != nil {
		return nil, 0, finish(s.logger, "列出指导申请", err)
	}

	result := make([]dto.SupervisionResponse, 0, len(items))
	for i := range items {
		result = append(result, *toSupervisionResponse(&items[i]))
	}
	return result, total, nil
}

func (s *supervisionService) ListSupervisors(ctx context.Context) ([]dto.UserBrief, error) {
	users, err := s.repo.User.ListByRoles(ctx, []string{model.RoleProfessor, model.RoleGraduationAssistant})
	if err != nil {
		return nil, finish(s.logger, "查询指导老师", err)
	}
	result := make([]dto.UserBrief, 0, len(users))
	for i := range users {
		result = append(result, *toUserBrief(&users[i]))
	}
	return result, nil
}

// ── 内部辅助 ──

func (s *supervisionService) load(ctx context.Context, requestID string) (*dto.SupervisionResponse, error) {
	request, err := s.repo.Request.GetByID(ctx, requestID)
	if err != nil {
		return nil, finish(s.logger, "查询指导申请", notFound(err, ErrRequestNotFound), zap.String("request_id", requestID))
	}
	return toSupervisionResponse(request), nil
}

func toSupervisionResponse(r *model.SupervisionRequest) *dto.SupervisionResponse {
	resp := &dto.SupervisionResponse{
		ID:          r.RequestID,
		ThesisID:    r.ThesisID,
		StudentID:   r.StudentID,
		AssistantID: r.AssistantID,
		Assistant:   toUserBrief(r.Assistant),
		Status:      string(r.Status),
		ResolvedAt:  dto.FormatTimePtr(r.ResolvedAt),
		CreatedAt:   dto.FormatTime(r.CreatedAt),
		UpdatedAt:   dto.FormatTime(r.UpdatedAt),
	}
	if r.Thesis != nil {
		resp.ThesisTitle = r.Thesis.Title
	}
	return resp
}
