// Package account 提供登录会话与用户管理
package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"ebook-studio-api/internal/config"
	"ebook-studio-api/internal/domain/entity"
	"ebook-studio-api/internal/domain/repository"
	apperrors "ebook-studio-api/pkg/errors"
	"ebook-studio-api/pkg/logger"
	"ebook-studio-api/pkg/utils"
)

const minPasswordLength = 6

// AddUserInput 新增用户参数
type AddUserInput struct {
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Password string          `json:"password"`
	Role     entity.UserRole `json:"role"`
}

// Service 账户服务
type Service struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   *utils.JWTManager
	cfg      config.AuthConfig
	now      func() time.Time
}

// NewService 创建账户服务
func NewService(users repository.UserRepository, sessions repository.SessionRepository, tokens *utils.JWTManager, cfg *config.AuthConfig) *Service {
	c := *cfg
	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	c.RootAccount = entity.NormalizeEmail(c.RootAccount)
	return &Service{users: users, sessions: sessions, tokens: tokens, cfg: c, now: time.Now}
}

// SeedUsers 写入初始账户，已存在的账户保持不变
func (s *Service) SeedUsers(ctx context.Context) error {
	for _, seed := range s.cfg.SeedUsers {
		u := entity.NewUser(seed.Email, seed.Name, entity.UserRole(seed.Role))
		if err := u.SetPassword(seed.Password, s.cfg.BcryptCost); err != nil {
			return err
		}
		created, err := s.users.Create(ctx, u)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to seed user")
		}
		if created {
			logger.Info(ctx, "seeded user", "email", u.Email, "role", string(u.Role))
		}
	}
	return nil
}

// Login 校验凭证并创建会话
func (s *Service) Login(ctx context.Context, email, password string) (*entity.Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load user")
	}
	if user == nil || !user.CheckPassword(password) {
		return nil, apperrors.ErrUnauthorized.WithDetail("invalid email or password")
	}

	now := s.now()
	session := &entity.Session{
		ID:        uuid.NewString(),
		User:      user.Summary(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	token, err := s.tokens.GenerateToken(user.Email, string(user.Role), session.ID, s.cfg.SessionTTL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to sign token")
	}
	if err := s.sessions.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save session")
	}
	session.Token = token
	return session, nil
}

// Logout 注销会话；无效或已过期的令牌视为已注销
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to delete session")
	}
	return nil
}

// CurrentSession 返回令牌对应的有效会话
func (s *Service) CurrentSession(ctx context.Context, token string) (*entity.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.ErrTokenMissing
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}
	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load session")
	}
	if session == nil {
		return nil, apperrors.ErrUnauthorized.WithDetail("session ended")
	}
	session.Token = token
	return session, nil
}

// ListUsers 返回不含密码信息的用户列表
func (s *Service) ListUsers(ctx context.Context) ([]entity.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to list users")
	}
	out := make([]entity.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// AddUser 新增用户，邮箱重复时返回 Conflict
func (s *Service) AddUser(ctx context.Context, in AddUserInput) (*entity.UserSummary, error) {
	email := entity.NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperrors.ErrValidationFailed.WithDetail("invalid email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.ErrValidationFailed.WithDetail("password must be at least 6 characters")
	}
	if in.Role != "" && in.Role != entity.UserRoleAdmin && in.Role != entity.UserRoleUser {
		return nil, apperrors.ErrValidationFailed.WithDetail("unknown role: " + string(in.Role))
	}

	u := entity.NewUser(email, in.Name, in.Role)
	u.CreatedAt = s.now()
	if err := u.SetPassword(in.Password, s.cfg.BcryptCost); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to hash password")
	}
	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to create user")
	}
	if !created {
		return nil, apperrors.ErrConflict.WithDetail("email already registered")
	}
	summary := u.Summary()
	return &summary, nil
}

// DeleteUser 删除用户；根账户不可删除
func (s *Service) DeleteUser(ctx context.Context, email string) error {
	email = entity.NormalizeEmail(email)
	if email == s.cfg.RootAccount {
		return apperrors.ErrForbidden.WithDetail("the root administrator cannot be deleted")
	}
	deleted, err := s.users.Delete(ctx, email)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to delete user")
	}
	if !deleted {
		return apperrors.ErrUserNotFound
	}
	return nil
}
