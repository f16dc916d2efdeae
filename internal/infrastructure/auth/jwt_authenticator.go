// Package auth 基于 JWT 的认证提供方
package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/domain/service"
	"vidassist-api/pkg/utils"
)

// RevocationList 已吊销令牌查询
type RevocationList interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTAuthenticator 校验访问令牌并返回当前用户
type JWTAuthenticator struct {
	jwt     *utils.JWTManager
	revoked RevocationList
}

// NewJWTAuthenticator 创建认证提供方；revoked 可为 nil
func NewJWTAuthenticator(jwt *utils.JWTManager, revoked RevocationList) *JWTAuthenticator {
	return &JWTAuthenticator{jwt: jwt, revoked: revoked}
}

// CurrentUser 解析令牌；吊销列表不可用时返回瞬时认证失败，而不是放行
func (a *JWTAuthenticator) CurrentUser(ctx context.Context, token string) (*service.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errclass.FromAuth(&errclass.AuthFailure{Status: http.StatusUnauthorized, Err: stderrors.New("missing token")})
	}

	claims, err := a.jwt.ParseToken(token)
	if err != nil {
		return nil, errclass.FromAuth(&errclass.AuthFailure{Status: http.StatusUnauthorized, Err: err})
	}

	if a.revoked != nil && claims.ID != "" {
		revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, errclass.FromAuth(&errclass.AuthFailure{Status: http.StatusServiceUnavailable, Transient: true, Err: err})
		}
		if revoked {
			return nil, errclass.FromAuth(&errclass.AuthFailure{Status: http.StatusUnauthorized, Err: stderrors.New("token revoked")})
		}
	}

	return &service.Identity{
		OwnerID: claims.OwnerID(),
		Email:   claims.Email,
		Plan:    claims.Plan,
	}, nil
}
