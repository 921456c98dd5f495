package workflow

import (
	"fmt"

	pkgerrors "thesis-track/backend/pkg/errors"
)

// RequestStatus 指导申请状态
type RequestStatus string

const (
	RequestRequested RequestStatus = "requested"
	RequestApproved  RequestStatus = "approved"
	RequestDeclined  RequestStatus = "declined"
	RequestCancelled RequestStatus = "cancelled"
)

// LiveRequestStatuses 进行中的申请状态，同一论文最多一条
func LiveRequestStatuses() []RequestStatus {
	return []RequestStatus{RequestRequested, RequestApproved}
}

// IsLive requested / approved 视为进行中
func (s RequestStatus) IsLive() bool {
	return s == RequestRequested || s == RequestApproved
}

// IsTerminal 除 requested 外均为终态
func (s RequestStatus) IsTerminal() bool {
	return s != RequestRequested
}

// Valid 是否为已知状态
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestRequested, RequestApproved, RequestDeclined, RequestCancelled:
		return true
	}
	return false
}

// Resolve 校验申请能否从 from 进入终态 to
func Resolve(from, to RequestStatus) error {
	if to == RequestRequested || !to.Valid() {
		return pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf("无效的目标状态: %s", to))
	}
	if from.IsTerminal() {
		return pkgerrors.New(pkgerrors.ErrAlreadyTerminal,
			fmt.Sprintf("申请已处于 %s 状态，不能再变更", from))
	}
	return nil
}
