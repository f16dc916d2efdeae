package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/application/transcript"
	"vidassist-api/internal/interfaces/http/dto"
	"vidassist-api/internal/interfaces/http/middleware"
	"vidassist-api/pkg/logger"
)

const msgVideoIDRequired = "A valid videoId is required"

// TranscriptFetcher 字幕查询
type TranscriptFetcher interface {
	Get(ctx context.Context, ownerID, videoID string, shouldProcess bool) (*transcript.Result, error)
}

// TranscriptHandler 字幕处理器
type TranscriptHandler struct {
	transcripts TranscriptFetcher
}

// NewTranscriptHandler 创建字幕处理器
func NewTranscriptHandler(transcripts TranscriptFetcher) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts}
}

// GetTranscript 获取视频字幕
// @Summary 获取视频字幕
// @Description 命中已保存字幕时直接返回；未命中且 shouldProcess 为 true 时提取并计费
// @Tags Transcripts
// @Accept json
// @Produce json
// @Param body body dto.ResourceRequest true "视频"
// @Success 200 {object} transcript.Result
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/transcript [post]
func (h *TranscriptHandler) GetTranscript(c *gin.Context) {
	ownerID, ok := middleware.RequireOwner(c)
	if !ok {
		return
	}

	var req dto.ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, msgVideoIDRequired)
		return
	}
	videoID := requestResourceID(c, req.ID())
	if videoID == "" {
		dto.BadRequest(c, msgVideoIDRequired)
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.ResourceIDKey, videoID)
	result, err := h.transcripts.Get(ctx, ownerID, videoID, req.Process())
	if err != nil {
		classified := errclass.Observe(err)
		if classified.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, "get transcript failed", err, "kind", string(classified.Kind))
		}
		dto.Classified(c, classified)
		return
	}
	c.JSON(http.StatusOK, result)
}
