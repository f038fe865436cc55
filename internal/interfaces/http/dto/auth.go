package dto

import (
	"time"

	"ebook-studio-api/internal/domain/entity"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserDTO 用户信息（不含密码）
type UserDTO struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse 会话响应
type SessionResponse struct {
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *UserDTO  `json:"user"`
}

// ToUserDTO 将用户摘要转换为 DTO
func ToUserDTO(u entity.UserSummary) *UserDTO {
	return &UserDTO{
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// ToSessionResponse 将会话转换为响应；includeToken 为 false 时不回显令牌
func ToSessionResponse(s *entity.Session, includeToken bool) *SessionResponse {
	if s == nil {
		return nil
	}
	resp := &SessionResponse{
		ExpiresAt: s.ExpiresAt,
		User:      ToUserDTO(s.User),
	}
	if includeToken {
		resp.Token = s.Token
	}
	return resp
}
