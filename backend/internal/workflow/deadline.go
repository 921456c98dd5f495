package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"

	pkgerrors "thesis-track/backend/pkg/errors"
)

// DeadlineType 截止日期类型
type DeadlineType string

const (
	DeadlineSubmission DeadlineType = "submission"
	DeadlineReview     DeadlineType = "review"
	DeadlineDefense    DeadlineType = "defense"
	DeadlineRevision   DeadlineType = "revision"
)

// Valid 是否为已知类型
func (t DeadlineType) Valid() bool {
	switch t {
	case DeadlineSubmission, DeadlineReview, DeadlineDefense, DeadlineRevision:
		return true
	}
	return false
}

// 答辩日期推导的固定偏移（天）
const (
	SubmissionLeadDays = 7
	ReviewLeadDays     = 2
	// MinDefenseLeadDays 答辩日期至少需在当前时间 7 天之后，保证提交截止日不落在过去
	MinDefenseLeadDays = SubmissionLeadDays
)

// DefenseInput 推导输入
type DefenseInput struct {
	Title       string
	Description *string
	Location    *string
	DefenseDate time.Time
	IsActive    bool
	IsGlobal    bool
}

// DerivedDeadline 推导出的单条截止日期
type DerivedDeadline struct {
	Title        string
	Description  *string
	Location     *string
	DeadlineDate time.Time
	DeadlineType DeadlineType
	IsActive     bool
	IsGlobal     bool
}

// Batch 同一答辩日期推导出的三条截止日期
type Batch struct {
	Submission DerivedDeadline
	Review     DerivedDeadline
	Defense    DerivedDeadline
}

// All 按时间先后返回
func (b Batch) All() []DerivedDeadline {
	return []DerivedDeadline{b.Submission, b.Review, b.Defense}
}

// CheckDefenseLead 校验答辩日期的提前量
func CheckDefenseLead(defense, at time.Time) error {
	if defense.IsZero() {
		return pkgerrors.New(pkgerrors.ErrValidation, "答辩日期不能为空")
	}
	earliest := at.UTC().AddDate(0, 0, MinDefenseLeadDays)
	if defense.UTC().Before(earliest) {
		return pkgerrors.New(pkgerrors.ErrValidation,
			fmt.Sprintf("答辩日期必须至少在 %d 天之后", MinDefenseLeadDays))
	}
	return nil
}

// CheckDeadlineDate 单独创建或改期的截止日期必须晚于当前时间
func CheckDeadlineDate(date, at time.Time) error {
	if date.IsZero() {
		return pkgerrors.New(pkgerrors.ErrValidation, "截止日期不能为空")
	}
	if !date.After(at) {
		return pkgerrors.New(pkgerrors.ErrValidation, "截止日期必须晚于当前时间")
	}
	return nil
}

// ValidateDeadlineTitle 标题去除空白后不能为空
func ValidateDeadlineTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return pkgerrors.New(pkgerrors.ErrValidation, "截止日期标题不能为空")
	}
	return nil
}

// DeriveFromDefense 由答辩日期推导提交、评审、答辩三条截止日期
// 相同输入总是得到相同偏移；at 为调用时刻，仅用于提前量校验
func DeriveFromDefense(in DefenseInput, at time.Time) (Batch, error) {
	if err := ValidateDeadlineTitle(in.Title); err != nil {
		return Batch{}, err
	}
	title := strings.TrimSpace(in.Title)
	if err := CheckDefenseLead(in.DefenseDate, at); err != nil {
		return Batch{}, err
	}

	defense := in.DefenseDate.UTC()
	build := func(t DeadlineType, date time.Time) DerivedDeadline {
		return DerivedDeadline{
			Title:        fmt.Sprintf("%s (%s)", title, t),
			Description:  in.Description,
			Location:     in.Location,
			DeadlineDate: date,
			DeadlineType: t,
			IsActive:     in.IsActive,
			IsGlobal:     in.IsGlobal,
		}
	}

	return Batch{
		Submission: build(DeadlineSubmission, defense.AddDate(0, 0, -SubmissionLeadDays)),
		Review:     build(DeadlineReview, defense.AddDate(0, 0, -ReviewLeadDays)),
		Defense:    build(DeadlineDefense, defense),
	}, nil
}

// DaysRemaining 距截止日期的自然日天数，已过期为负数
func DaysRemaining(deadline, at time.Time) int {
	due := now.With(deadline.UTC()).BeginningOfDay()
	today := now.With(at.UTC()).BeginningOfDay()
	return int(due.Sub(today).Hours() / 24)
}

// IsUpcoming 截止日期尚未到达
func IsUpcoming(deadline, at time.Time) bool {
	return deadline.After(at)
}
