// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/domain/service"
	"vidassist-api/internal/interfaces/http/dto"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

const (
	ctxKeyIdentity = "identity"
	ctxKeyOwnerID  = "owner_id"
)

// AuthConfig 认证配置
type AuthConfig struct {
	// SkipPaths 跳过认证的路径前缀
	SkipPaths []string
	// Enabled 是否启用认证
	Enabled bool
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// Auth 认证中间件：解析 Bearer 令牌，注入当前用户
// 认证提供方的失败经 errclass 归类，瞬时失败返回 503/429 而不是 401。
func Auth(cfg AuthConfig, authenticator service.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || authenticator == nil {
			c.Next()
			return
		}
		for _, path := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			dto.AbortClassified(c, errclass.Observe(apperrors.New(apperrors.KindUnauthorized, errclass.MsgUnauthorized)))
			return
		}

		ctx := c.Request.Context()
		identity, err := authenticator.CurrentUser(ctx, token)
		if err != nil {
			classified := errclass.Observe(errclass.FromAuth(err))
			if classified.Kind == apperrors.KindAuthTransient {
				logger.Warn(ctx, "auth provider unavailable", "status", classified.HTTPStatus, "error", err.Error())
			}
			dto.AbortClassified(c, classified)
			return
		}

		c.Set(ctxKeyIdentity, identity)
		c.Set(ctxKeyOwnerID, identity.OwnerID)
		c.Request = c.Request.WithContext(logger.WithContext(ctx, logger.OwnerIDKey, identity.OwnerID))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// IdentityFromGin 当前用户；未认证时返回 nil
func IdentityFromGin(c *gin.Context) *service.Identity {
	v, ok := c.Get(ctxKeyIdentity)
	if !ok {
		return nil
	}
	identity, _ := v.(*service.Identity)
	return identity
}

// OwnerIDFromGin 当前用户 ID
func OwnerIDFromGin(c *gin.Context) string {
	return c.GetString(ctxKeyOwnerID)
}

// RequireOwner 处理器内的兜底检查：认证关闭或被跳过时拒绝需要用户的请求
func RequireOwner(c *gin.Context) (string, bool) {
	ownerID := OwnerIDFromGin(c)
	if ownerID == "" {
		dto.Error(c, http.StatusUnauthorized, errclass.MsgUnauthorized)
		return "", false
	}
	return ownerID, true
}
