// Package redis 提供基于 Redis 的缓存、限流与会话/用户/任务存储
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ebook-studio-api/internal/config"
)

var tracer = otel.Tracer("redis")

// Client Redis 客户端
type Client struct {
	rdb *redis.Client
}

// NewClient 创建 Redis 客户端
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewClientFromRedis 包装已有的 go-redis 客户端
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Redis 获取底层 Redis 客户端
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	result, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	if result != "PONG" {
		return fmt.Errorf("unexpected ping response: %s", result)
	}
	return nil
}

// traced 在 span 内执行单条命令，redis.Nil 不计为错误
func traced[T any](ctx context.Context, op, key string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "redis."+op,
		trace.WithAttributes(attribute.String("redis.key", key)))
	defer span.End()

	v, err := fn(ctx)
	if err != nil && !IsNil(err) {
		span.RecordError(err)
	}
	return v, err
}

// Get 读取字符串值
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return traced(ctx, "Get", key, func(ctx context.Context) (string, error) {
		return c.rdb.Get(ctx, key).Result()
	})
}

// Set 写入值，expiration 为 0 表示不过期
func (c *Client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	_, err := traced(ctx, "Set", key, func(ctx context.Context) (string, error) {
		return c.rdb.Set(ctx, key, value, expiration).Result()
	})
	return err
}

// Del 删除单个键
func (c *Client) Del(ctx context.Context, key string) error {
	_, err := traced(ctx, "Del", key, func(ctx context.Context) (int64, error) {
		return c.rdb.Del(ctx, key).Result()
	})
	return err
}

// HSetNX 仅当字段不存在时写入
func (c *Client) HSetNX(ctx context.Context, key, field string, value any) (bool, error) {
	return traced(ctx, "HSetNX", key, func(ctx context.Context) (bool, error) {
		return c.rdb.HSetNX(ctx, key, field, value).Result()
	})
}

// HGet 读取哈希字段
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	return traced(ctx, "HGet", key, func(ctx context.Context) (string, error) {
		return c.rdb.HGet(ctx, key, field).Result()
	})
}

// HGetAll 读取整个哈希
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return traced(ctx, "HGetAll", key, func(ctx context.Context) (map[string]string, error) {
		return c.rdb.HGetAll(ctx, key).Result()
	})
}

// HDel 删除哈希字段，返回删除数量
func (c *Client) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	return traced(ctx, "HDel", key, func(ctx context.Context) (int64, error) {
		return c.rdb.HDel(ctx, key, fields...).Result()
	})
}

// IsNil 检查是否为 redis.Nil 错误
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
