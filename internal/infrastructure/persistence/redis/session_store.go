package redis

import (
	"context"
	"time"

	"vidassist-api/pkg/logger"
)

const defaultSessionTTL = 24 * time.Hour

// SessionStore 会话 -> 资源 ID 的 Redis 实现，跨实例共享
// 读写失败只记日志，调用方按未命中处理。
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	ctx, span := tracer.Start(ctx, "redis.SessionStore.Get")
	defer span.End()

	val, err := s.client.rdb.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if !IsNil(err) {
			span.RecordError(err)
			logger.Warn(ctx, "session lookup failed", "error", err.Error())
		}
		return "", false
	}
	return val, val != ""
}

func (s *SessionStore) Put(ctx context.Context, sessionID, resourceID string) {
	if sessionID == "" || resourceID == "" {
		return
	}
	ctx, span := tracer.Start(ctx, "redis.SessionStore.Put")
	defer span.End()

	if err := s.client.rdb.Set(ctx, sessionKey(sessionID), resourceID, s.ttl).Err(); err != nil {
		span.RecordError(err)
		logger.Warn(ctx, "session store failed", "error", err.Error())
	}
}

func sessionKey(sessionID string) string {
	return "session:resource:" + sessionID
}
