// Package artifact 生成并保存视频产物（标题、缩略图），每个产物单独计费。
package artifact

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/application/resource"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/repository"
	"vidassist-api/internal/domain/service"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

// TitleRequest 标题生成请求
type TitleRequest struct {
	OwnerID      string
	VideoID      string
	Instructions string
	Details      *entity.VideoDetails
}

// TitleService 标题生成
type TitleService struct {
	gate         *resource.Gate[entity.Title]
	titles       repository.TitleRepository
	entitlements service.Entitlements
	generator    service.TextGenerator
	newID        func() string
}

// NewTitleService 创建标题服务
func NewTitleService(titles repository.TitleRepository, entitlements service.Entitlements, usage resource.UsageRecorder, generator service.TextGenerator) *TitleService {
	return &TitleService{
		gate:         resource.NewGate[entity.Title](entity.FeatureTitleGeneration, titles, entitlements, usage, nil),
		titles:       titles,
		entitlements: entitlements,
		generator:    generator,
		newID:        uuid.NewString,
	}
}

// Generate 生成并保存一个标题；每次调用都是一个新产物，计费一次
// 套餐未开放该功能时返回 KindFeatureDisabled。
func (s *TitleService) Generate(ctx context.Context, req TitleRequest) (*entity.Title, error) {
	if err := ensureEnabled(ctx, s.entitlements, req.OwnerID, entity.FeatureTitleGeneration); err != nil {
		return nil, err
	}

	instructions := req.Instructions
	if instructions == "" {
		instructions = fallbackTitleInstruction(req.Details)
	}

	id := s.newID()
	key := entity.NewResourceKey(req.OwnerID, entity.ArtifactResourceID(req.VideoID, id))
	build := func(ctx context.Context, _ entity.ResourceKey) (*entity.Title, error) {
		seed := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), id[:8])
		raw, err := s.generator.GenerateText(ctx, titleSystemPrompt, titlePrompt(req.VideoID, req.Details, instructions, seed))
		if err != nil {
			return nil, errclass.FromProvider(err)
		}
		text := cleanTitle(raw)
		if text == "" {
			return nil, apperrors.New(apperrors.KindUnknown, "").WithDetail("model returned an empty title")
		}
		return &entity.Title{ID: id, OwnerID: req.OwnerID, VideoID: req.VideoID, Title: text}, nil
	}

	title, _, err := s.gate.GetOrCreateWith(ctx, key, true, build)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "title generated", "video_id", req.VideoID, "title_id", title.ID)
	return title, nil
}

// List 列出视频下已生成的标题
func (s *TitleService) List(ctx context.Context, ownerID, videoID string) ([]*entity.Title, error) {
	return s.titles.ListByVideo(ctx, ownerID, videoID)
}

func ensureEnabled(ctx context.Context, entitlements service.Entitlements, ownerID string, feature entity.Feature) error {
	enabled, err := entitlements.IsEnabled(ctx, ownerID, feature)
	if err != nil {
		return fmt.Errorf("check feature %s: %w", feature, err)
	}
	if !enabled {
		return apperrors.New(apperrors.KindFeatureDisabled, "")
	}
	return nil
}
