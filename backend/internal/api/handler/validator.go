package handler

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"thesis-track/backend/internal/workflow"
)

const tagDefenseLead = "defense_lead"

// RegisterValidators 向 gin 的校验引擎注册自定义规则
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation(tagDefenseLead, validateDefenseLead)
}

// validateDefenseLead 答辩日期需留出提交截止的提前量
// 仅做请求层的快速拒绝，Service 层以注入时钟再次校验
func validateDefenseLead(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return workflow.CheckDefenseLead(t, time.Now()) == nil
}
