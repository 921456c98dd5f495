package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"thesis-track/backend/internal/workflow"
	pkgerrors "thesis-track/backend/pkg/errors"
	"thesis-track/backend/pkg/response"
)

// 业务错误码按模块分段：20xxx 论文、21xxx 指导申请、22xxx 截止日期、23xxx 导出、24xxx 答辩委员会
// 段内偏移与错误类别一一对应
const (
	codeThesisBase      = 20000
	codeSupervisionBase = 21000
	codeDeadlineBase    = 22000
	codeExportBase      = 23000
	codeCommitteeBase   = 24000
)

const (
	offsetValidation = iota + 1
	offsetInvalidTransition
	offsetPrecondition
	offsetConflict
	offsetNotFound
	offsetAlreadyTerminal
	offsetForbidden
)

// writeServiceError 按错误类别写出响应，未归类的错误一律 50000
func writeServiceError(c *gin.Context, base int, err error) {
	msg := pkgerrors.Message(err)

	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, base+offsetValidation, msg)
	case errors.Is(err, pkgerrors.ErrInvalidTransition):
		var te *workflow.TransitionError
		if errors.As(err, &te) {
			response.ErrorWithDetails(c, 409, base+offsetInvalidTransition, msg, string(te.From))
			return
		}
		response.Conflict(c, base+offsetInvalidTransition, msg)
	case errors.Is(err, pkgerrors.ErrPreconditionFailed):
		response.PreconditionFailed(c, base+offsetPrecondition, msg)
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, base+offsetConflict, msg)
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, base+offsetNotFound, msg)
	case errors.Is(err, pkgerrors.ErrAlreadyTerminal):
		response.Conflict(c, base+offsetAlreadyTerminal, msg)
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, base+offsetForbidden, msg)
	default:
		response.InternalError(c)
	}
}

// writeBindError 参数绑定失败，自定义校验规则给出具体提示
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == tagDefenseLead {
				response.BadRequest(c, 10001, "答辩日期必须至少在 7 天之后")
				return
			}
		}
	}
	response.BadRequest(c, 10001, "参数校验失败")
}
