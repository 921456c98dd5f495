package workflow

import (
	"fmt"

	pkgerrors "thesis-track/backend/pkg/errors"
)

// ReviewOutcome 评审结论
type ReviewOutcome string

const (
	OutcomeApprove         ReviewOutcome = "approve"
	OutcomeDecline         ReviewOutcome = "decline"
	OutcomeRequestRevision ReviewOutcome = "request_revision"
)

// 成绩采用 2~6 分制，2 分为不及格
const (
	MinGrade        = 2
	MaxGrade        = 6
	MinPassingGrade = 3
)

// Action 评审结论对应的状态机操作
func (o ReviewOutcome) Action() Action {
	switch o {
	case OutcomeApprove:
		return ActionApprove
	case OutcomeDecline:
		return ActionDecline
	default:
		return ActionRequestRevision
	}
}

// Valid 是否为已知结论
func (o ReviewOutcome) Valid() bool {
	return o == OutcomeApprove || o == OutcomeDecline || o == OutcomeRequestRevision
}

// EffectiveOutcome 结合成绩计算实际生效的评审结论
// 成绩低于及格线时一律按 decline 处理，与评审人提交的结论无关
func EffectiveOutcome(outcome ReviewOutcome, grade *int) (ReviewOutcome, error) {
	if !outcome.Valid() {
		return "", pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf("未知的评审结论: %s", outcome))
	}
	if grade == nil {
		return outcome, nil
	}
	if *grade < MinGrade || *grade > MaxGrade {
		return "", pkgerrors.New(pkgerrors.ErrValidation,
			fmt.Sprintf("成绩必须在 %d~%d 之间", MinGrade, MaxGrade))
	}
	if *grade < MinPassingGrade {
		return OutcomeDecline, nil
	}
	return outcome, nil
}
