// Package memory 提供进程内的有界缓存实现（会话上下文、身份记忆）
package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxEntries = 10000
	defaultTTL        = 24 * time.Hour
)

// SessionStore 会话 -> 资源 ID，按 LRU 与 TTL 淘汰
type SessionStore struct {
	cache *expirable.LRU[string, string]
}

// NewSessionStore 创建进程内会话存储
func NewSessionStore(maxEntries int, ttl time.Duration) *SessionStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SessionStore{cache: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	return s.cache.Get(sessionID)
}

func (s *SessionStore) Put(_ context.Context, sessionID, resourceID string) {
	if sessionID == "" || resourceID == "" {
		return
	}
	s.cache.Add(sessionID, resourceID)
}

// IdentityMemo 已登记 owner 的记忆，过期后会重新登记一次
type IdentityMemo struct {
	cache *expirable.LRU[string, struct{}]
}

// NewIdentityMemo 创建身份记忆
func NewIdentityMemo(maxEntries int, ttl time.Duration) *IdentityMemo {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &IdentityMemo{cache: expirable.NewLRU[string, struct{}](maxEntries, nil, ttl)}
}

func (m *IdentityMemo) Seen(ownerID string) bool {
	return m.cache.Contains(ownerID)
}

func (m *IdentityMemo) Mark(ownerID string) {
	m.cache.Add(ownerID, struct{}{})
}
