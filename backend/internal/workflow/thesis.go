// Package workflow 论文流程核心规则：状态机、指导申请状态、评审成绩映射与截止日期推导。
// 本包不依赖存储，所有函数均为纯函数，由 service 层在事务内调用。
package workflow

import (
	"fmt"
	"strings"

	pkgerrors "thesis-track/backend/pkg/errors"
)

// ThesisStatus 论文状态
type ThesisStatus string

const (
	StatusDraft         ThesisStatus = "draft"
	StatusSubmitted     ThesisStatus = "submitted"
	StatusUnderReview   ThesisStatus = "under_review"
	StatusNeedsRevision ThesisStatus = "needs_revision"
	StatusApproved      ThesisStatus = "approved"
	StatusDeclined      ThesisStatus = "declined"
)

// Action 触发状态变化的操作
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionBeginReview     Action = "begin_review"
	ActionApprove         Action = "approve"
	ActionDecline         Action = "decline"
	ActionRequestRevision Action = "request_revision"
	// ActionReopen 管理员撤销驳回，不在常规状态表内
	ActionReopen Action = "reopen"

	// 以下操作不改变论文状态，但受当前状态约束
	ActionEdit               Action = "edit"
	ActionRequestSupervision Action = "request_supervision"
	ActionAssignSupervisor   Action = "assign_supervisor"
	ActionManageCommittee    Action = "manage_committee"
)

// transitions 合法流转表，未列出的组合一律非法
var transitions = map[ThesisStatus]map[Action]ThesisStatus{
	StatusDraft: {
		ActionSubmit: StatusSubmitted,
	},
	StatusNeedsRevision: {
		ActionSubmit: StatusSubmitted,
	},
	StatusSubmitted: {
		ActionBeginReview: StatusUnderReview,
	},
	StatusUnderReview: {
		ActionApprove:         StatusApproved,
		ActionDecline:         StatusDeclined,
		ActionRequestRevision: StatusNeedsRevision,
	},
}

// AllStatuses 全部论文状态
func AllStatuses() []ThesisStatus {
	return []ThesisStatus{
		StatusDraft, StatusSubmitted, StatusUnderReview,
		StatusNeedsRevision, StatusApproved, StatusDeclined,
	}
}

// LifecycleActions 常规状态机中的全部操作
func LifecycleActions() []Action {
	return []Action{
		ActionSubmit, ActionBeginReview, ActionApprove,
		ActionDecline, ActionRequestRevision,
	}
}

// Valid 是否为已知状态
func (s ThesisStatus) Valid() bool {
	for _, st := range AllStatuses() {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal approved / declined 为终态
func (s ThesisStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusDeclined
}

// Editable 仅草稿与待修改状态允许学生编辑内容
func (s ThesisStatus) Editable() bool {
	return s == StatusDraft || s == StatusNeedsRevision
}

// TransitionError 非法流转，携带当前状态供调用方决定下一步
type TransitionError struct {
	From   ThesisStatus
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("论文当前状态为 %s，不允许执行 %s", e.From, e.Action)
}

func (e *TransitionError) Unwrap() error { return pkgerrors.ErrInvalidTransition }

// Next 计算 from 状态执行 action 后的目标状态
func Next(from ThesisStatus, action Action) (ThesisStatus, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return from, &TransitionError{From: from, Action: action}
}

// ReopenTarget 管理员撤销驳回的目标状态
// 仅允许从 declined 发起；仍有有效指导关系时回到 under_review，否则回到 draft
func ReopenTarget(from ThesisStatus, supervised bool) (ThesisStatus, error) {
	if from != StatusDeclined {
		return from, &TransitionError{From: from, Action: ActionReopen}
	}
	if supervised {
		return StatusUnderReview, nil
	}
	return StatusDraft, nil
}

// ValidateTitle 标题去除空白后不能为空
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return pkgerrors.New(pkgerrors.ErrValidation, "论文标题不能为空")
	}
	return nil
}
