package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/application/account"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/interfaces/http/dto"
	"ebook-studio-api/pkg/logger"
)

// UserAdmin 用户管理
type UserAdmin interface {
	ListUsers(ctx context.Context) ([]entity.UserSummary, error)
	AddUser(ctx context.Context, in account.AddUserInput) (*entity.UserSummary, error)
	DeleteUser(ctx context.Context, email string) error
}

// UserHandler 用户管理处理器（仅管理员）
type UserHandler struct {
	users UserAdmin
}

// NewUserHandler 创建用户处理器
func NewUserHandler(users UserAdmin) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers 用户列表
// @Summary 获取用户列表
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.UserListResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Router /v1/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ToUserListResponse(users))
}

// CreateUser 新增用户
// @Summary 新增用户
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.CreateUserRequest true "用户信息"
// @Success 201 {object} dto.Response[dto.UserDTO]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}

	user, err := h.users.AddUser(ctx, account.AddUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     entity.UserRole(req.Role),
	})
	if err != nil {
		dto.FromError(c, err)
		return
	}

	logger.Info(ctx, "user created", "email", user.Email, "role", string(user.Role))
	dto.Created(c, dto.ToUserDTO(*user))
}

// DeleteUser 删除用户
// @Summary 删除用户
// @Tags Users
// @Param email path string true "邮箱"
// @Success 204
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/users/{email} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	email := c.Param("email")
	if err := h.users.DeleteUser(ctx, email); err != nil {
		dto.FromError(c, err)
		return
	}
	logger.Info(ctx, "user deleted", "email", email)
	dto.NoContent(c)
}
