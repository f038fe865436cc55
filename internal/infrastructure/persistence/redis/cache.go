package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"ebook-studio-api/pkg/logger"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache JSON 值缓存，回源经 singleflight 合并
type Cache struct {
	client *Client
	group  singleflight.Group
}

// NewCache 创建缓存
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Load Read-Through 读取。命中时解码返回；未命中、解码失败或 Redis 不可用时回源，
// 同一键的并发回源只执行一次，回填失败只记录日志
func Load[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, loader func(context.Context) (T, error)) (T, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Load",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return v, nil
		}
	case !IsNil(err):
		span.RecordError(err)
		logger.Warn(ctx, "cache read failed, loading from source", "key", key, "error", err.Error())
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	res, err, shared := c.group.Do(key, func() (any, error) {
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, v, ttl); err != nil {
			logger.Warn(ctx, "cache fill failed", "key", key, "error", err.Error())
		}
		return v, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Get 读取原始缓存值，未命中时返回 redis.Nil
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.rdb.Get(ctx, key).Bytes()
}

// Set 以 JSON 写入缓存
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.client.rdb.Set(ctx, key, b, ttl).Err()
}

// InvalidatePattern 删除匹配模式的全部键
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) error {
	ctx, span := cacheTracer.Start(ctx, "cache.InvalidatePattern",
		trace.WithAttributes(attribute.String("cache.pattern", pattern)))
	defer span.End()

	var keys []string
	iter := c.client.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	span.SetAttributes(attribute.Int("cache.invalidated_count", len(keys)))
	return c.client.rdb.Del(ctx, keys...).Err()
}

// BookKey 归档电子书缓存键
func BookKey(bookID string) string {
	return "ebook:book:" + bookID
}

// OwnerBooksPattern 用户归档列表缓存键模式
func OwnerBooksPattern(ownerID string) string {
	return fmt.Sprintf("ebook:books:%s:*", ownerID)
}

// OwnerBooksKey 用户归档列表分页缓存键
func OwnerBooksKey(ownerID string, page, pageSize int) string {
	return fmt.Sprintf("ebook:books:%s:%d:%d", ownerID, page, pageSize)
}

// InvalidateBook 使单本归档及其所属用户的列表缓存失效
func (c *Cache) InvalidateBook(ctx context.Context, bookID, ownerID string) error {
	if err := c.client.rdb.Del(ctx, BookKey(bookID)).Err(); err != nil {
		return err
	}
	return c.InvalidatePattern(ctx, OwnerBooksPattern(ownerID))
}
