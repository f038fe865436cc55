package entity

import "time"

// Session 登录会话
type Session struct {
	ID        string      `json:"id"`
	Token     string      `json:"token,omitempty"`
	User      UserSummary `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}
