package dto

import "ebook-studio-api/internal/domain/entity"

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"max=128"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// UserListResponse 用户列表响应
type UserListResponse struct {
	Users []*UserDTO `json:"users"`
}

// ToUserListResponse 转换用户列表
func ToUserListResponse(users []entity.UserSummary) *UserListResponse {
	resp := &UserListResponse{Users: make([]*UserDTO, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, ToUserDTO(u))
	}
	return resp
}
