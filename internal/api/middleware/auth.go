package middleware

import (
	"Beacon/internal/pkg/consts"
	"Beacon/internal/pkg/response"
	"Beacon/internal/pkg/security"
	"context"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenBlacklist 登录服务注销时以 token 签名为 key 写入
type TokenBlacklist interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware(blacklist TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		signature, err := security.ExtractSignature(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		if blacklist != nil {
			value, err := blacklist.Get(c.Request.Context(), signature)
			if err != nil {
				log.ErrorContext(c.Request.Context(), "check token blacklist failed", "err", err)
				response.Fail(c, response.InternalServerError, "未知错误")
				c.Abort()
				return
			}
			if len(value) > 0 {
				response.Fail(c, response.Unauthorized, "Token 无效或已过期")
				c.Abort()
				return
			}
		}

		claims, err := security.ValidateToken(tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			c.Abort()
			return
		}

		c.Set(consts.ContextUserID, claims.UserID)
		c.Set(consts.ContextRoles, claims.Roles)

		newCtx := context.WithValue(c.Request.Context(), consts.ContextUserID, claims.UserID)
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}
