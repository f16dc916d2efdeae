package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/application/resource"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/interfaces/http/dto"
	"vidassist-api/internal/interfaces/http/middleware"
	"vidassist-api/pkg/logger"
)

// VideoResources 视频分析资源
type VideoResources interface {
	GetOrCreateResource(ctx context.Context, resourceID, ownerID string, shouldProcess bool) *resource.Result[entity.Video]
	Recent(ctx context.Context, ownerID string, limit int) ([]*entity.Video, error)
}

// ResourceHandler 视频分析资源处理器
type ResourceHandler struct {
	videos VideoResources
}

// NewResourceHandler 创建资源处理器
func NewResourceHandler(videos VideoResources) *ResourceHandler {
	return &ResourceHandler{videos: videos}
}

// GetOrCreate 获取或创建视频分析
// @Summary 获取或创建视频分析
// @Tags Resources
// @Accept json
// @Produce json
// @Param body body dto.ResourceRequest true "视频"
// @Success 200 {object} resource.Result[entity.Video]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/resources [post]
func (h *ResourceHandler) GetOrCreate(c *gin.Context) {
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

	result := h.videos.GetOrCreateResource(c.Request.Context(), videoID, ownerID, req.Process())
	status := http.StatusOK
	if !result.Success && result.Status != 0 {
		status = result.Status
	}
	c.JSON(status, result)
}

// Recent 最近分析过的视频
// @Summary 最近分析过的视频
// @Tags Resources
// @Produce json
// @Param limit query int false "数量（默认 20，最大 100）"
// @Success 200 {object} dto.Response[[]entity.Video]
// @Router /api/v1/resources [get]
func (h *ResourceHandler) Recent(c *gin.Context) {
	ownerID, ok := middleware.RequireOwner(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	videos, err := h.videos.Recent(c.Request.Context(), ownerID, limit)
	if err != nil {
		classified := errclass.Observe(err)
		logger.Error(c.Request.Context(), "list recent videos failed", err, "kind", string(classified.Kind))
		dto.Classified(c, classified)
		return
	}
	if videos == nil {
		videos = []*entity.Video{}
	}
	dto.Success(c, videos)
}
