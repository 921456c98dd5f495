package service

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-track/backend/internal/model"
	"thesis-track/backend/internal/repository"
	pkgerrors "thesis-track/backend/pkg/errors"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Thesis      ThesisService
	Supervision SupervisionService
	Deadline    DeadlineService
	Export      ExportService
	Committee   CommitteeService
}

// NewService 创建 Service 聚合
func NewService(repo *repository.Repository, logger *zap.Logger) *Service {
	return &Service{
		Thesis:      NewThesisService(repo, logger),
		Supervision: NewSupervisionService(repo, logger),
		Deadline:    NewDeadlineService(repo, logger),
		Export:      NewExportService(repo, logger),
		Committee:   NewCommitteeService(repo, logger),
	}
}

// Actor 调用方身份，由认证中间件从 JWT 中解析
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin 是否为管理员
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// IsStudent 是否为学生
func (a Actor) IsStudent() bool { return a.Role == model.RoleStudent }

// IsSupervisor 是否为可担任指导的角色
func (a Actor) IsSupervisor() bool { return model.IsSupervisorRole(a.Role) }

// ── 公共辅助 ──

// notFound 将 gorm.ErrRecordNotFound 替换为模块自己的 NotFound 错误
func notFound(err error, nf error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return err
}

// finish 对事务返回的错误做统一归类；未归类的存储错误记录日志
func finish(logger *zap.Logger, op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	err = pkgerrors.TranslateDB(err)
	if pkgerrors.IsKind(err) {
		return err
	}
	logger.Error(op+"失败", append(fields, zap.Error(err))...)
	return err
}

func timePtr(t time.Time) *time.Time { return &t }

func nowUTC() time.Time { return time.Now().UTC() }
