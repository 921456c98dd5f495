package handler

import "thesis-track/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Thesis      *ThesisHandler
	Supervision *SupervisionHandler
	Deadline    *DeadlineHandler
	Export      *ExportHandler
	Committee   *CommitteeHandler
	Health      *HealthHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, checks map[string]Pinger) *Handler {
	return &Handler{
		Thesis:      NewThesisHandler(svc.Thesis),
		Supervision: NewSupervisionHandler(svc.Supervision),
		Deadline:    NewDeadlineHandler(svc.Deadline),
		Export:      NewExportHandler(svc.Export),
		Committee:   NewCommitteeHandler(svc.Committee),
		Health:      NewHealthHandler(checks),
	}
}
