package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误分类（kind）──
// 业务层返回的错误一律可通过 errors.Is 归入以下类别之一

var (
	ErrValidation         = errors.New("参数校验失败")
	ErrInvalidTransition  = errors.New("状态流转不合法")
	ErrPreconditionFailed = errors.New("前置条件不满足")
	ErrConflict           = errors.New("并发冲突，请刷新后重试")
	ErrNotFound           = errors.New("记录不存在")
	ErrAlreadyTerminal    = errors.New("记录已处于终态")
	ErrForbidden          = errors.New("无权限执行该操作")
)

// Error 带分类的业务错误
type Error struct {
	Kind error
	Msg  string
}

// New 创建带分类的业务错误
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// IsKind 是否已归入业务错误类别
func IsKind(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrInvalidTransition, ErrPreconditionFailed,
		ErrConflict, ErrNotFound, ErrAlreadyTerminal, ErrForbidden,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Message 返回面向调用方的错误描述
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// ── PostgreSQL 错误码 ──

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// TranslateDB 将底层存储错误归类
// 唯一约束冲突与串行化失败都视为并发冲突，其余原样返回
func TranslateDB(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return New(ErrConflict, ErrConflict.Error())
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return New(ErrConflict, ErrConflict.Error())
	}
	if errors.Is(err, ErrOptimisticLock) {
		return New(ErrConflict, err.Error())
	}
	return err
}
