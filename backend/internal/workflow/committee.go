package workflow

import (
	"time"
)

// CommitteeRole 答辩委员会成员角色
type CommitteeRole string

const (
	CommitteeChair    CommitteeRole = "chair"
	CommitteeReviewer CommitteeRole = "reviewer"
	CommitteeAdvisor  CommitteeRole = "advisor"
	CommitteeExternal CommitteeRole = "external"
)

// Valid 是否为已知角色
func (r CommitteeRole) Valid() bool {
	switch r {
	case CommitteeChair, CommitteeReviewer, CommitteeAdvisor, CommitteeExternal:
		return true
	}
	return false
}

// CheckCommitteeOpen 论文终结后委员会名单冻结
func CheckCommitteeOpen(status ThesisStatus) error {
	if status.IsTerminal() {
		return &TransitionError{From: status, Action: ActionManageCommittee}
	}
	return nil
}

// ApplyApproval 计算成员审批状态变化后的审批时间
// 由未通过变为通过时记录 at，撤回时清空，状态不变时保留原值
func ApplyApproval(was, now bool, current *time.Time, at time.Time) *time.Time {
	switch {
	case now && !was:
		t := at.UTC()
		return &t
	case !now:
		return nil
	default:
		return current
	}
}
