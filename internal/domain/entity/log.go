package entity

import "time"

// AgentRole 日志角色
type AgentRole string

const (
	AgentStrategist AgentRole = "Strategist"
	AgentWriter     AgentRole = "Writer"
	AgentDesigner   AgentRole = "Designer"
	AgentReviewer   AgentRole = "Reviewer"
)

// LogEntry 工作流日志条目
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Role      AgentRole `json:"role"`
	Message   string    `json:"message"`
}
