package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidassist-api/internal/application/chat"
	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/interfaces/http/dto"
	"vidassist-api/internal/interfaces/http/middleware"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

// FlowHeader 响应头：本轮采用的流程
const FlowHeader = middleware.ChatFlowHeader

// TurnStarter 对话编排
type TurnStarter interface {
	Start(ctx context.Context, req *chat.Request) (*chat.Turn, error)
}

// ChatHandler 对话处理器
type ChatHandler struct {
	turns TurnStarter
}

// NewChatHandler 创建对话处理器
func NewChatHandler(turns TurnStarter) *ChatHandler {
	return &ChatHandler{turns: turns}
}

// chatFailure 开流前的失败只用四种状态码：过载 503、限流 429、缺少上下文 400，其余 500
// 文案与 code 保持分类结果不变。
func chatFailure(ce errclass.ClassifiedError) errclass.ClassifiedError {
	switch {
	case ce.Kind == apperrors.KindProviderOverloaded:
		ce.HTTPStatus = http.StatusServiceUnavailable
	case ce.Kind == apperrors.KindProviderRateLimited,
		ce.Kind == apperrors.KindAuthTransient && ce.HTTPStatus == http.StatusTooManyRequests:
		ce.HTTPStatus = http.StatusTooManyRequests
	case ce.Kind == apperrors.KindMissingContext, ce.Kind == apperrors.KindInvalidInput:
		ce.HTTPStatus = http.StatusBadRequest
	default:
		ce.HTTPStatus = http.StatusInternalServerError
	}
	return ce
}

// Chat 流式对话
// @Summary 流式对话
// @Description 以 SSE 输出 delta/tool/error/done 事件；流开始前的失败以 JSON 错误返回
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param body body dto.ChatRequest true "对话"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	ownerID, ok := middleware.RequireOwner(c)
	if !ok {
		return
	}

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.Classified(c, chatFailure(errclass.Observe(apperrors.Wrap(err, apperrors.KindInvalidInput, ""))))
		return
	}

	ctx := c.Request.Context()
	sessionID := req.Session()
	if sessionID != "" {
		ctx = logger.WithContext(ctx, logger.SessionIDKey, sessionID)
	}

	turn, err := h.turns.Start(ctx, &chat.Request{
		OwnerID:    ownerID,
		SessionID:  sessionID,
		ResourceID: requestResourceID(c, req.BodyResourceID()),
		Messages:   req.Messages,
	})
	if err != nil {
		dto.Classified(c, chatFailure(errclass.Classify(err)))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header(FlowHeader, string(turn.Flow))
	if turn.ResourceID != "" {
		c.Header(middleware.VideoIDHeader, turn.ResourceID)
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-turn.Events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
