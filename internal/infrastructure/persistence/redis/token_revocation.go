package redis

import (
	"context"
	"time"
)

const revokedTokenPrefix = "auth:revoked:"

// TokenRevocations 已吊销令牌列表，按 jti 存储，过期时间与令牌剩余寿命一致
type TokenRevocations struct {
	client *Client
}

// NewTokenRevocations 创建吊销列表
func NewTokenRevocations(client *Client) *TokenRevocations {
	return &TokenRevocations{client: client}
}

// IsRevoked 查询令牌是否已吊销；Redis 失败原样返回，由调用方决定如何降级
func (r *TokenRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.rdb.Exists(ctx, revokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke 吊销令牌
func (r *TokenRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return r.client.rdb.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl).Err()
}
