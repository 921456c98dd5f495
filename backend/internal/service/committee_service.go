package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-track/backend/internal/dto"
	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// ── 答辩委员会模块业务错误 ──

var (
	ErrCommitteeMemberNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "委员会成员不存在")
	ErrCommitteeForbidden      = pkgerrors.New(pkgerrors.ErrForbidden, "无权管理该论文的答辩委员会")
	ErrCommitteeInvalidMember  = pkgerrors.New(pkgerrors.ErrValidation, "委员会成员须为在职的教授或毕业助理")
	ErrCommitteeDuplicate      = pkgerrors.New(pkgerrors.ErrConflict, "该老师已是此论文的委员会成员")
	ErrCommitteeRoleLocked     = pkgerrors.New(pkgerrors.ErrForbidden, "成员本人只能更新审批状态")
	ErrCommitteeApprovalOwn    = pkgerrors.New(pkgerrors.ErrForbidden, "审批状态只能由成员本人更新")
)

// CommitteeService 答辩委员会业务接口
//
// 名单变更在论文行锁下进行，论文终结后名单冻结
type CommitteeService interface {
	ListMembers(ctx context.Context, actor Actor, thesisID string) ([]dto.CommitteeMemberResponse, error)
	AddMember(ctx context.Context, actor Actor, thesisID string, req *dto.AddCommitteeMemberRequest) (*dto.CommitteeMemberResponse, error)
	UpdateMember(ctx context.Context, actor Actor, memberID string, req *dto.UpdateCommitteeMemberRequest) (*dto.CommitteeMemberResponse, error)
	RemoveMember(ctx context.Context, actor Actor, memberID string) error
}

type committeeService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewCommitteeService 创建 CommitteeService 实例
func NewCommitteeService(repo *repository.Repository, logger *zap.Logger) CommitteeService {
	return &committeeService{repo: repo, logger: logger, now: time.Now}
}

// canManage 管理员、教授或该论文的指导老师可以调整名单
func canManage(actor Actor, t *model.Thesis) bool {
	return actor.IsAdmin() || actor.Role == model.RoleProfessor || t.IsSupervisedBy(actor.UserID)
}

// ────────────────────── 查询 ──────────────────────

func (s *committeeService) ListMembers(ctx context.Context, actor Actor, thesisID string) ([]dto.CommitteeMemberResponse, error) {
	thesis, err := s.repo.Thesis.GetByID(ctx, thesisID)
	if err != nil {
		return nil, finish(s.logger, "查询论文", notFound(err, ErrThesisNotFound), zap.String("id", thesisID))
	}
	if actor.IsStudent() && thesis.StudentID != actor.UserID {
		return nil, ErrThesisForbidden
	}

	members, err := s.repo.Committee.ListByThesis(ctx, thesisID)
	if err != nil {
		return nil, finish(s.logger, "查询委员会成员", err, zap.String("thesis_id", thesisID))
	}
	result := make([]dto.CommitteeMemberResponse, 0, len(members))
	for i := range members {
		result = append(result, *toCommitteeMemberResponse(&members[i]))
	}
	return result, nil
}

// ────────────────────── AddMember ──────────────────────

func (s *committeeService) AddMember(ctx context.Context, actor Actor, thesisID string, req *dto.AddCommitteeMemberRequest) (*dto.CommitteeMemberResponse, error) {
	role := workflow.CommitteeRole(req.Role)
	if !role.Valid() {
		return nil, pkgerrors.New(pkgerrors.ErrValidation, "未知的委员会角色")
	}

	member := &model.CommitteeMember{ThesisID: thesisID, UserID: req.UserID, Role: role}
	member.SetActor(actor.UserID)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		thesis, err := tx.Thesis.GetForUpdate(ctx, thesisID)
		if err != nil {
			return notFound(err, ErrThesisNotFound)
		}
		if !canManage(actor, thesis) {
			return ErrCommitteeForbidden
		}
		if err := workflow.CheckCommitteeOpen(thesis.Status); err != nil {
			return err
		}

		user, err := tx.User.GetByID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommitteeInvalidMember
			}
			return err
		}
		if !user.IsActive || !model.IsSupervisorRole(user.Role) {
			return ErrCommitteeInvalidMember
		}

		exists, err := tx.Committee.Exists(ctx, thesisID, req.UserID)
		if err != nil {
			return err
		}
		if exists {
			return ErrCommitteeDuplicate
		}
		return tx.Committee.Create(ctx, member)
	})
	if err != nil {
		// 并发添加同一成员时由唯一约束兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCommitteeDuplicate
		}
		return nil, finish(s.logger, "添加委员会成员", err, zap.String("thesis_id", thesisID))
	}

	s.logger.Info("添加委员会成员",
		zap.String("thesis_id", thesisID), zap.String("user_id", req.UserID),
		zap.String("role", req.Role), zap.String("actor", actor.UserID))
	return s.load(ctx, member.MemberID)
}

// ────────────────────── UpdateMember ──────────────────────

func (s *committeeService) UpdateMember(ctx context.Context, actor Actor, memberID string, req *dto.UpdateCommitteeMemberRequest) (*dto.CommitteeMemberResponse, error) {
	err := s.withLockedMember(ctx, memberID, func(tx *repository.Repository, thesis *model.Thesis, member *model.CommitteeMember) error {
		self := member.UserID == actor.UserID
		manager := canManage(actor, thesis)
		if !self && !manager {
			return ErrCommitteeForbidden
		}

		if req.Role != nil {
			// 指导老师与管理员可以调整自己的角色，普通成员不行
			if self && !actor.IsAdmin() && !thesis.IsSupervisedBy(actor.UserID) {
				return ErrCommitteeRoleLocked
			}
			role := workflow.CommitteeRole(*req.Role)
			if !role.Valid() {
				return pkgerrors.New(pkgerrors.ErrValidation, "未知的委员会角色")
			}
			member.Role = role
		}
		if req.HasApproved != nil && *req.HasApproved != member.HasApproved {
			if !self && !actor.IsAdmin() {
				return ErrCommitteeApprovalOwn
			}
			member.ApprovalDate = workflow.ApplyApproval(member.HasApproved, *req.HasApproved, member.ApprovalDate, s.now())
			member.HasApproved = *req.HasApproved
		}

		member.UpdatedBy = &actor.UserID
		return tx.Committee.Update(ctx, member)
	})
	if err != nil {
		return nil, finish(s.logger, "更新委员会成员", err, zap.String("member_id", memberID))
	}

	s.logger.Info("更新委员会成员", zap.String("member_id", memberID), zap.String("actor", actor.UserID))
	return s.load(ctx, memberID)
}

// ────────────────────── RemoveMember ──────────────────────

func (s *committeeService) RemoveMember(ctx context.Context, actor Actor, memberID string) error {
	err := s.withLockedMember(ctx, memberID, func(tx *repository.Repository, thesis *model.Thesis, member *model.CommitteeMember) error {
		if !canManage(actor, thesis) {
			return ErrCommitteeForbidden
		}
		return tx.Committee.Delete(ctx, member.MemberID)
	})
	if err != nil {
		return finish(s.logger, "移除委员会成员", err, zap.String("member_id", memberID))
	}

	s.logger.Info("移除委员会成员", zap.String("member_id", memberID), zap.String("actor", actor.UserID))
	return nil
}

// withLockedMember 先锁论文再锁成员，与 AddMember 的加锁顺序一致
func (s *committeeService) withLockedMember(ctx context.Context, memberID string,
	fn func(tx *repository.Repository, thesis *model.Thesis, member *model.CommitteeMember) error) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		current, err := tx.Committee.GetByID(ctx, memberID)
		if err != nil {
			return notFound(err, ErrCommitteeMemberNotFound)
		}
		thesis, err := tx.Thesis.GetForUpdate(ctx, current.ThesisID)
		if err != nil {
			return notFound(err, ErrThesisNotFound)
		}
		member, err := tx.Committee.GetForUpdate(ctx, memberID)
		if err != nil {
			return notFound(err, ErrCommitteeMemberNotFound)
		}
		if err := workflow.CheckCommitteeOpen(thesis.Status); err != nil {
			return err
		}
		return fn(tx, thesis, member)
	})
}

// ── 内部辅助 ──

func (s *committeeService) load(ctx context.Context, memberID string) (*dto.CommitteeMemberResponse, error) {
	member, err := s.repo.Committee.GetByID(ctx, memberID)
	if err != nil {
		return nil, finish(s.logger, "查询委员会成员", notFound(err, ErrCommitteeMemberNotFound), zap.String("member_id", memberID))
	}
	return toCommitteeMemberResponse(member), nil
}

func toCommitteeMemberResponse(m *model.CommitteeMember) *dto.CommitteeMemberResponse {
	resp := &dto.CommitteeMemberResponse{
		ID:           m.MemberID,
		ThesisID:     m.ThesisID,
		UserID:       m.UserID,
		Role:         string(m.Role),
		HasApproved:  m.HasApproved,
		ApprovalDate: dto.FormatTimePtr(m.ApprovalDate),
		CreatedAt:    dto.FormatTime(m.CreatedAt),
		UpdatedAt:    dto.FormatTime(m.UpdatedAt),
	}
	if m.User != nil {
		resp.User = toUserBrief(m.User)
	}
	return resp
}
