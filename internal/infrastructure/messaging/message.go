// Package messaging 提供基于 Redis Streams 的消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"ebook-studio-api/pkg/logger"
	"ebook-studio-api/pkg/tracer"
)

// Stream 流名称
type Stream string

// StreamBookGen 无人值守生成任务流
const StreamBookGen Stream = "stream:ebook:gen"

// DLQStream 死信流名称
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组名称
type ConsumerGroup string

// ConsumerGroupGenWorker job-worker 使用的消费者组
const ConsumerGroupGenWorker ConsumerGroup = "cg-gen-worker"

// MessageTypeBookGen 无人值守生成消息类型
const MessageTypeBookGen = "book_gen"

// 跨进程传递的上下文字段
var propagatedKeys = []logger.ContextKey{logger.RequestIDKey, logger.TraceIDKey}

// Message 流中的消息信封，载荷按类型解析
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	OwnerID   string            `json:"owner_id"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建消息
func NewMessage(id, msgType, ownerID string, payload any) (*Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        id,
		Type:      msgType,
		OwnerID:   ownerID,
		Payload:   b,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata 读取元数据，不存在时返回空串
func (m *Message) GetMetadata(key string) string {
	return m.Metadata[key]
}

// UnmarshalPayload 解析载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Stamp 把请求 ID 与 trace ID 写入元数据
func (m *Message) Stamp(ctx context.Context) {
	if traceID := tracer.TraceID(ctx); traceID != "" {
		m.SetMetadata(string(logger.TraceIDKey), traceID)
	}
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		m.SetMetadata(string(logger.RequestIDKey), reqID)
	}
}

// Restore 把消息携带的身份与追踪字段还原到消费端日志上下文
func (m *Message) Restore(ctx context.Context) context.Context {
	if m.OwnerID != "" {
		ctx = logger.WithContext(ctx, logger.UserIDKey, m.OwnerID)
	}
	ctx = logger.WithContext(ctx, logger.JobIDKey, m.ID)
	for _, key := range propagatedKeys {
		if v := m.GetMetadata(string(key)); v != "" {
			ctx = logger.WithContext(ctx, key, v)
		}
	}
	return ctx
}

// BookJobMessage 无人值守生成任务载荷
type BookJobMessage struct {
	JobID      string `json:"job_id"`
	OwnerID    string `json:"owner_id"`
	Topic      string `json:"topic"`
	Tone       string `json:"tone,omitempty"`
	CoverStyle string `json:"cover_style,omitempty"`
	AuthorBio  string `json:"author_bio,omitempty"`
	// Credential 调用方提供的模型密钥，未提供时使用服务端配置
	Credential string `json:"credential,omitempty"`
}

// BackoffConfig 重试退避
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 1s 起步，翻倍，封顶 1m
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2}
}

// CalculateBackoff 第 retryCount 次重试前的等待时间
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(retryCount))
	if math.IsInf(d, 0) || d > float64(c.Max) {
		return c.Max
	}
	return time.Duration(d)
}
