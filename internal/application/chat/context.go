package chat

import (
	"context"
	"strings"

	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/service"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

// ResolveContext 确定本轮绑定的视频：显式传入 > 会话缓存 > MissingContext
// 显式值会写回会话缓存，供后续省略 resourceId 的轮次恢复。
func ResolveContext(ctx context.Context, sessions service.SessionStore, sessionID, explicit string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if sessions != nil && sessionID != "" {
			sessions.Put(ctx, sessionID, explicit)
		}
		return explicit, nil
	}
	if sessions != nil && sessionID != "" {
		if cached, ok := sessions.Get(ctx, sessionID); ok && cached != "" {
			logger.Debug(ctx, "restored video context from session", "resource_id", cached)
			return cached, nil
		}
	}
	return "", apperrors.New(apperrors.KindMissingContext, "")
}

// LatestUserText 最近一条有文本的用户消息
func LatestUserText(messages []entity.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != entity.ChatRoleUser {
			continue
		}
		if text := strings.TrimSpace(messages[i].Text()); text != "" {
			return text
		}
	}
	return ""
}
