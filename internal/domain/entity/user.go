package entity

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// User 用户实体
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary 不含密码信息的用户摘要
type UserSummary struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail 统一邮箱格式
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser 创建新用户
func NewUser(email, name string, role UserRole) *User {
	if role != UserRoleAdmin {
		role = UserRoleUser
	}
	return &User{
		Email:     NormalizeEmail(email),
		Name:      strings.TrimSpace(name),
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// IsAdmin 检查用户是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// SetPassword 设置并散列密码
func (u *User) SetPassword(password string, cost int) error {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// Summary 返回用户摘要
func (u *User) Summary() UserSummary {
	return UserSummary{Email: u.Email, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}
