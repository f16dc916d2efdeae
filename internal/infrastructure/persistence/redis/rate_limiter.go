package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// 清理窗口外的记录后判断并记录本次请求，整个过程在服务端原子完成
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[1])
if redis.call('ZCARD', key) >= tonumber(ARGV[4]) then
  return 0
end
redis.call('ZADD', key, ARGV[2], ARGV[5])
redis.call('PEXPIRE', key, ARGV[3])
return 1
`)

// RateLimiter 基于有序集合的滑动窗口限流器
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 窗口内请求数未达 limit 时记录本次请求并放行
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	defer span.End()
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
	)

	now := l.now().UnixMilli()
	args := []any{
		strconv.FormatInt(now-window.Milliseconds(), 10),
		strconv.FormatInt(now, 10),
		strconv.FormatInt(2*window.Milliseconds(), 10),
		strconv.Itoa(limit),
		strconv.FormatInt(now, 10) + "-" + uuid.NewString(),
	}
	allowed, err := slidingWindow.Run(ctx, l.client.rdb, []string{key}, args...).Int()
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetAttributes(attribute.Bool("ratelimit.allowed", allowed == 1))
	return allowed == 1, nil
}

// Remaining 当前窗口剩余次数；只读，不清理过期记录
func (l *RateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Remaining")
	defer span.End()

	windowStart := l.now().UnixMilli() - window.Milliseconds()
	used, err := l.client.rdb.ZCount(ctx, key, "("+strconv.FormatInt(windowStart, 10), "+inf").Result()
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return max(limit-int(used), 0), nil
}

// BuildRateLimitKey 构建限流键；subject 为 owner id 或客户端 IP
func BuildRateLimitKey(subject, endpoint string) string {
	return "ratelimit:" + subject + ":" + endpoint
}
