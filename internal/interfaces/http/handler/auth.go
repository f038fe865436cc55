package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/interfaces/http/dto"
	"ebook-studio-api/internal/interfaces/http/middleware"
	"ebook-studio-api/pkg/logger"
)

// AccountService 账户服务
type AccountService interface {
	Login(ctx context.Context, email, password string) (*entity.Session, error)
	Logout(ctx context.Context, token string) error
	CurrentSession(ctx context.Context, token string) (*entity.Session, error)
}

// AuthHandler 认证处理器
type AuthHandler struct {
	accounts AccountService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Login 登录
// @Summary 用户登录
// @Description 校验邮箱与密码并创建会话
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.FromError(c, bindError(err))
		return
	}

	session, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		logger.Warn(ctx, "login failed", "email", req.Email)
		dto.FromError(c, err)
		return
	}

	logger.Info(ctx, "user logged in", "email", session.User.Email)
	dto.Success(c, dto.ToSessionResponse(session, true))
}

// Logout 注销
// @Summary 注销当前会话
// @Tags Auth
// @Produce json
// @Success 204
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.NoContent(c)
}

// Session 当前会话
// @Summary 获取当前会话
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	session := middleware.CurrentSession(c)
	if session == nil {
		var err error
		session, err = h.accounts.CurrentSession(c.Request.Context(), middleware.SessionToken(c))
		if err != nil {
			dto.FromError(c, err)
			return
		}
	}
	dto.Success(c, dto.ToSessionResponse(session, false))
}
