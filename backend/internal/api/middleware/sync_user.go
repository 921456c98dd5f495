package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thesis-track/backend/internal/model"
	"thesis-track/backend/pkg/redis"
)

// UserUpserter 本地用户投影的写入端
type UserUpserter interface {
	Upsert(ctx context.Context, user *model.User) error
}

// SyncUser 将 JWT 中的身份写入本地 users 表，供外键与列表展示使用
// 同一用户在 ttl 内只同步一次（Redis SETNX）；rdb 为 nil 时每次请求都同步
// 同步失败只记录日志，不影响请求本身
func SyncUser(users UserUpserter, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if rdb != nil {
			first, err := rdb.MarkUserSynced(ctx, userID, ttl)
			if err == nil && !first {
				c.Next()
				return
			}
		}

		// 停用状态以身份服务声明为准，未携带时视为启用
		active := true
		if v, ok := c.Get("active"); ok {
			if b, ok := v.(bool); ok {
				active = b
			}
		}

		user := &model.User{
			UserID:   userID,
			Name:     c.GetString("name"),
			Email:    c.GetString("email"),
			Role:     c.GetString("role"),
			IsActive: active,
		}
		if err := users.Upsert(ctx, user); err != nil {
			logger.Error("同步用户资料失败",
				zap.String("user_id", userID),
				zap.String("request_id", c.GetString(requestIDKey)),
				zap.Error(err),
			)
		}

		c.Next()
	}
}
