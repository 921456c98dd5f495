package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thesis-track/backend/config"
	"thesis-track/backend/internal/api/handler"
	"thesis-track/backend/internal/api/middleware"
	"thesis-track/backend/internal/model"
	"thesis-track/backend/pkg/jwt"
	"thesis-track/backend/pkg/redis"
)

// Deps 路由所需的外部依赖
type Deps struct {
	JWT   *jwt.Manager
	Redis *redis.Client // 可为 nil，相关中间件降级
	Users middleware.UserUpserter
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", h.Health.Health)

	staff := []string{model.RoleProfessor, model.RoleGraduationAssistant, model.RoleAdmin}

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(deps.JWT, deps.Redis))
	v1.Use(middleware.SyncUser(deps.Users, deps.Redis, cfg.Auth.UserSyncTTL, logger))
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(deps.Redis, cfg.RateLimit.Limit, cfg.RateLimit.Window))
	}
	{
		// 论文模块（细粒度鉴权在 Service 层）
		theses := v1.Group("/theses")
		{
			theses.POST("", middleware.RoleAuth(model.RoleStudent), h.Thesis.CreateThesis)
			theses.GET("", h.Thesis.ListTheses)
			theses.GET("/:id", h.Thesis.GetThesis)
			theses.PUT("/:id", middleware.RoleAuth(model.RoleStudent), h.Thesis.UpdateThesis)
			theses.POST("/:id/submit", h.Thesis.SubmitThesis)
			theses.POST("/:id/review/begin", middleware.RoleAuth(staff...), h.Thesis.BeginReview)
			theses.POST("/:id/review/outcome", middleware.RoleAuth(model.RoleProfessor, model.RoleGraduationAssistant), h.Thesis.RecordReviewOutcome)
			theses.POST("/:id/reopen", middleware.RoleAuth(model.RoleAdmin), h.Thesis.ReopenThesis)
			theses.GET("/:id/transitions", h.Thesis.ListTransitions)
			theses.GET("/:id/reviews", h.Thesis.ListReviews)
			theses.GET("/:id/committee", h.Committee.ListMembers)
			theses.POST("/:id/committee", middleware.RoleAuth(staff...), h.Committee.AddMember)
		}

		// 答辩委员会模块（成员本人可更新审批状态）
		committee := v1.Group("/committee")
		{
			committee.PUT("/:member_id", middleware.RoleAuth(staff...), h.Committee.UpdateMember)
			committee.DELETE("/:member_id", middleware.RoleAuth(staff...), h.Committee.RemoveMember)
		}

		// 指导申请模块
		requests := v1.Group("/supervision-requests")
		{
			requests.POST("", middleware.RoleAuth(model.RoleStudent), h.Supervision.CreateRequest)
			requests.GET("", h.Supervision.ListRequests)
			requests.GET("/:id", h.Supervision.GetRequest)
			requests.POST("/:id/approve", middleware.RoleAuth(staff...), h.Supervision.ApproveRequest)
			requests.POST("/:id/decline", middleware.RoleAuth(staff...), h.Supervision.DeclineRequest)
			requests.POST("/:id/cancel", middleware.RoleAuth(model.RoleStudent, model.RoleAdmin), h.Supervision.CancelRequest)
		}
		v1.GET("/supervisors", h.Supervision.ListSupervisors)

		// 截止日期模块
		deadlines := v1.Group("/deadlines")
		{
			deadlines.POST("", middleware.RoleAuth(staff...), h.Deadline.CreateDeadline)
			deadlines.POST("/defense", middleware.RoleAuth(staff...), h.Deadline.CreateDefenseDeadlines)
			deadlines.GET("", h.Deadline.ListDeadlines)
			deadlines.GET("/upcoming", h.Deadline.UpcomingDeadlines)
			deadlines.GET("/:id", h.Deadline.GetDeadline)
			deadlines.PUT("/:id", middleware.RoleAuth(staff...), h.Deadline.UpdateDeadline)
			deadlines.PUT("/:id/deactivate", middleware.RoleAuth(model.RoleAdmin), h.Deadline.DeactivateDeadline)
			deadlines.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin), h.Deadline.DeleteDeadline)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/theses", middleware.RoleAuth(staff...), h.Export.ExportTheses)
			export.GET("/deadlines.ics", h.Export.ExportDeadlineCalendar)
		}
	}

	return r
}
