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

	"vidassist-api/pkg/logger"
	"vidassist-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

// Cache 带命名空间的 JSON 读穿缓存
// Redis 故障只降级为直接加载；加载失败不写缓存。
type Cache struct {
	client    *Client
	namespace string
	group     singleflight.Group
}

// NewCache 创建缓存；键统一加 "cache:" 前缀
func NewCache(client *Client) *Cache {
	return &Cache{client: client, namespace: "cache:"}
}

// Loader 未命中时的加载函数
type Loader[T any] func(ctx context.Context) (*T, error)

// ReadThrough 命中直接解码；未命中时同键并发只加载一次并回填
func ReadThrough[T any](ctx context.Context, c *Cache, name, key string, ttl time.Duration, load Loader[T]) (*T, error) {
	fullKey := c.namespace + key
	ctx, span := cacheTracer.Start(ctx, "cache.ReadThrough", trace.WithAttributes(
		attribute.String("cache.name", name),
		attribute.String("cache.key", fullKey),
	))
	defer span.End()

	raw, err := c.client.rdb.Get(ctx, fullKey).Bytes()
	switch {
	case err == nil:
		var out T
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			metrics.CacheLookups.WithLabelValues(name, "hit").Inc()
			return &out, nil
		}
		// 旧格式数据直接当作未命中
		logger.Warn(ctx, "discarding undecodable cache entry", "cache", name, "key", fullKey)
	case IsNil(err):
	default:
		span.RecordError(err)
		metrics.CacheLookups.WithLabelValues(name, "error").Inc()
		logger.Warn(ctx, "cache read failed, loading directly", "cache", name, "error", err.Error())
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// 首个调用方取消时不应连带让等待同键的其他请求失败
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(fullKey, func() (interface{}, error) {
		// 排队期间上一轮加载可能已经回填
		if raw, err := c.client.rdb.Get(loadCtx, fullKey).Bytes(); err == nil {
			var out T
			if json.Unmarshal(raw, &out) == nil {
				return &out, nil
			}
		}
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if err := c.set(loadCtx, fullKey, value, ttl); err != nil {
			span.RecordError(err)
			logger.Warn(loadCtx, "cache write failed", "cache", name, "error", err.Error())
		}
		return value, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.CacheLookups.WithLabelValues(name, "miss").Inc()
	return v.(*T), nil
}

// Invalidate 删除缓存项
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.namespace + k
	}
	return c.client.rdb.Del(ctx, full...).Err()
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.client.rdb.Set(ctx, key, raw, ttl).Err()
}
