// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/interfaces/http/dto"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
)

// Context 键
const (
	ContextUserID  = "user_id"
	ContextRole    = "role"
	ContextToken   = "session_token"
	ContextSession = "session"
)

// SessionResolver 由令牌解析当前会话
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*entity.Session, error)
}

// DefaultSkipPaths 无需登录的路径前缀
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/v1/auth/login",
}

// Auth 会话认证中间件：校验 Bearer 令牌并注入用户信息
func Auth(sessions SessionResolver, skipPaths ...string) gin.HandlerFunc {
	if len(skipPaths) == 0 {
		skipPaths = DefaultSkipPaths
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range skipPaths {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			dto.FromError(c, apperrors.ErrTokenMissing)
			return
		}

		session, err := sessions.CurrentSession(c.Request.Context(), token)
		if err != nil {
			dto.FromError(c, err)
			return
		}

		c.Set(ContextUserID, session.User.Email)
		c.Set(ContextRole, string(session.User.Role))
		c.Set(ContextToken, token)
		c.Set(ContextSession, session)
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, session.User.Email)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// UserID 当前用户
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// IsAdmin 当前用户是否为管理员
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextRole) == string(entity.UserRoleAdmin)
}

// SessionToken 当前请求携带的令牌
func SessionToken(c *gin.Context) string {
	return c.GetString(ContextToken)
}

// CurrentSession 当前会话
func CurrentSession(c *gin.Context) *entity.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	s, _ := v.(*entity.Session)
	return s
}
