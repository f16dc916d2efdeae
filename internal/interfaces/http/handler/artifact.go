package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"vidassist-api/internal/application/artifact"
	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/service"
	"vidassist-api/internal/interfaces/http/dto"
	"vidassist-api/internal/interfaces/http/middleware"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

// Titles 标题生成与查询
type Titles interface {
	Generate(ctx context.Context, req artifact.TitleRequest) (*entity.Title, error)
	List(ctx context.Context, ownerID, videoID string) ([]*entity.Title, error)
}

// Images 缩略图生成与查询
type Images interface {
	Generate(ctx context.Context, req artifact.ImageRequest) (*entity.Image, error)
	List(ctx context.Context, ownerID, videoID string) ([]*entity.Image, error)
}

// ArtifactHandler 标题与缩略图处理器
type ArtifactHandler struct {
	titles  Titles
	images  Images
	details service.VideoDetailsProvider
}

// NewArtifactHandler 创建产物处理器；details 可为 nil
func NewArtifactHandler(titles Titles, images Images, details service.VideoDetailsProvider) *ArtifactHandler {
	return &ArtifactHandler{titles: titles, images: images, details: details}
}

// ImageResponse 缩略图生成结果；URL 尚未就绪时带 error
type ImageResponse struct {
	Image *entity.Image `json:"image"`
	Error string        `json:"error,omitempty"`
}

// ListTitles 列出视频下的标题
// @Summary 列出标题
// @Tags Artifacts
// @Produce json
// @Param videoId path string true "视频 ID"
// @Success 200 {object} dto.Response[[]entity.Title]
// @Router /api/v1/videos/{videoId}/titles [get]
func (h *ArtifactHandler) ListTitles(c *gin.Context) {
	ownerID, videoID, ok := h.scope(c)
	if !ok {
		return
	}
	titles, err := h.titles.List(c.Request.Context(), ownerID, videoID)
	if err != nil {
		h.fail(c, "list titles failed", err)
		return
	}
	if titles == nil {
		titles = []*entity.Title{}
	}
	dto.Success(c, titles)
}

// GenerateTitle 生成标题
// @Summary 生成标题
// @Tags Artifacts
// @Accept json
// @Produce json
// @Param videoId path string true "视频 ID"
// @Param body body dto.GenerateTitleRequest false "附加要求"
// @Success 200 {object} dto.Response[entity.Title]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/v1/videos/{videoId}/titles [post]
func (h *ArtifactHandler) GenerateTitle(c *gin.Context) {
	ownerID, videoID, ok := h.scope(c)
	if !ok {
		return
	}
	var req dto.GenerateTitleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.Classified(c, errclass.Observe(apperrors.Wrap(err, apperrors.KindInvalidInput, "")))
			return
		}
	}

	ctx := c.Request.Context()
	title, err := h.titles.Generate(ctx, artifact.TitleRequest{
		OwnerID:      ownerID,
		VideoID:      videoID,
		Instructions: req.Instructions,
		Details:      h.videoDetails(ctx, videoID),
	})
	if err != nil {
		h.fail(c, "generate title failed", err)
		return
	}
	dto.Success(c, title)
}

// ListImages 列出视频下的缩略图
// @Summary 列出缩略图
// @Tags Artifacts
// @Produce json
// @Param videoId path string true "视频 ID"
// @Success 200 {object} dto.Response[[]entity.Image]
// @Router /api/v1/videos/{videoId}/images [get]
func (h *ArtifactHandler) ListImages(c *gin.Context) {
	ownerID, videoID, ok := h.scope(c)
	if !ok {
		return
	}
	images, err := h.images.List(c.Request.Context(), ownerID, videoID)
	if err != nil {
		h.fail(c, "list images failed", err)
		return
	}
	if images == nil {
		images = []*entity.Image{}
	}
	dto.Success(c, images)
}

// GenerateImage 生成缩略图
// @Summary 生成缩略图
// @Description URL 在等待时间内未就绪时返回 202，图片已保存并计费
// @Tags Artifacts
// @Accept json
// @Produce json
// @Param videoId path string true "视频 ID"
// @Param body body dto.GenerateImageRequest false "提示词"
// @Success 200 {object} dto.Response[ImageResponse]
// @Success 202 {object} ImageResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /api/v1/videos/{videoId}/images [post]
func (h *ArtifactHandler) GenerateImage(c *gin.Context) {
	ownerID, videoID, ok := h.scope(c)
	if !ok {
		return
	}
	var req dto.GenerateImageRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.Classified(c, errclass.Observe(apperrors.Wrap(err, apperrors.KindInvalidInput, "")))
			return
		}
	}

	ctx := c.Request.Context()
	img, err := h.images.Generate(ctx, artifact.ImageRequest{
		OwnerID: ownerID,
		VideoID: videoID,
		Prompt:  req.Prompt,
		Details: h.videoDetails(ctx, videoID),
	})
	if err != nil {
		if img != nil && apperrors.IsKind(err, apperrors.KindArtifactTimeout) {
			classified := errclass.Observe(err)
			c.JSON(http.StatusAccepted, ImageResponse{Image: img, Error: classified.UserMessage})
			return
		}
		h.fail(c, "generate image failed", err)
		return
	}
	dto.Success(c, ImageResponse{Image: img})
}

func (h *ArtifactHandler) scope(c *gin.Context) (ownerID, videoID string, ok bool) {
	ownerID, ok = middleware.RequireOwner(c)
	if !ok {
		return "", "", false
	}
	videoID = c.Param("videoId")
	if !validVideoID(videoID) {
		dto.BadRequest(c, msgVideoIDRequired)
		return "", "", false
	}
	return ownerID, videoID, true
}

// videoDetails 尽力获取视频信息，失败时生成走兜底提示词
func (h *ArtifactHandler) videoDetails(ctx context.Context, videoID string) *entity.VideoDetails {
	if h.details == nil {
		return nil
	}
	details, err := h.details.GetVideoDetails(ctx, videoID)
	if err != nil {
		logger.Warn(ctx, "video details unavailable", "video_id", videoID, "error", err.Error())
		return nil
	}
	return details
}

func (h *ArtifactHandler) fail(c *gin.Context, msg string, err error) {
	classified := errclass.Observe(err)
	if classified.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, err, "kind", string(classified.Kind))
	} else {
		logger.Warn(c.Request.Context(), msg, "kind", string(classified.Kind))
	}
	dto.Classified(c, classified)
}
