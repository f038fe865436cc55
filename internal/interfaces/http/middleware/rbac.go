package middleware

import (
	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/interfaces/http/dto"
	apperrors "ebook-studio-api/pkg/errors"
)

// RequireRole 角色检查中间件
func RequireRole(roles ...entity.UserRole) gin.HandlerFunc {
	allowed := make(map[entity.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		role := entity.UserRole(c.GetString(ContextRole))
		if role == "" {
			dto.FromError(c, apperrors.ErrUnauthorized)
			return
		}
		if !allowed[role] {
			dto.FromError(c, apperrors.ErrForbidden.WithDetail("role not allowed"))
			return
		}
		c.Next()
	}
}

// RequireAdmin 仅管理员可访问
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(entity.UserRoleAdmin)
}
