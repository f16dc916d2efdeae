package artifact

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/application/poller"
	"vidassist-api/internal/application/resource"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/repository"
	"vidassist-api/internal/domain/service"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

const imageContentType = "image/png"

// ImageRequest 缩略图生成请求
type ImageRequest struct {
	OwnerID string
	VideoID string
	Prompt  string
	Details *entity.VideoDetails
}

// ImageService 缩略图生成
type ImageService struct {
	gate         *resource.Gate[entity.Image]
	images       repository.ImageRepository
	entitlements service.Entitlements
	provider     service.ImageProvider
	objects      service.ObjectStore
	poll         poller.Config
	newID        func() string
}

// NewImageService 创建缩略图服务
func NewImageService(
	images repository.ImageRepository,
	entitlements service.Entitlements,
	usage resource.UsageRecorder,
	provider service.ImageProvider,
	objects service.ObjectStore,
	poll poller.Config,
) *ImageService {
	if poll.Artifact == "" {
		poll.Artifact = "image"
	}
	return &ImageService{
		gate:         resource.NewGate[entity.Image](entity.FeatureImageGeneration, images, entitlements, usage, nil),
		images:       images,
		entitlements: entitlements,
		provider:     provider,
		objects:      objects,
		poll:         poll,
		newID:        uuid.NewString,
	}
}

// Generate 生成图片、上传、保存元数据，并等待下载 URL 可见
//
// 等待超时返回已保存的图片和 KindArtifactTimeout：图片已存在且已计费，只是 URL 尚未就绪。
func (s *ImageService) Generate(ctx context.Context, req ImageRequest) (*entity.Image, error) {
	if err := ensureEnabled(ctx, s.entitlements, req.OwnerID, entity.FeatureImageGeneration); err != nil {
		return nil, err
	}

	prompt := SanitizePrompt(req.Prompt)
	if prompt == "" {
		prompt = fallbackImagePrompt(req.Details)
	}

	id := s.newID()
	key := entity.NewResourceKey(req.OwnerID, entity.ArtifactResourceID(req.VideoID, id))
	build := func(ctx context.Context, _ entity.ResourceKey) (*entity.Image, error) {
		data, err := s.provider.GenerateImage(ctx, prompt)
		if err != nil {
			return nil, errclass.FromProvider(err)
		}
		ref, err := s.objects.Upload(ctx, data, imageContentType)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		return &entity.Image{ID: id, OwnerID: req.OwnerID, VideoID: req.VideoID, StorageRef: ref, Prompt: prompt}, nil
	}

	img, _, err := s.gate.GetOrCreateWith(ctx, key, true, build)
	if err != nil {
		return nil, err
	}

	url, err := poller.WaitForField(ctx, s.poll,
		func(ctx context.Context) (*entity.Image, error) { return s.resolve(ctx, key) },
		func(found *entity.Image) (string, bool) {
			if found.URL == nil || *found.URL == "" {
				return "", false
			}
			return *found.URL, true
		},
	)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindArtifactTimeout) {
			logger.Warn(ctx, "image url not resolvable yet", "image_id", id)
			return img, err
		}
		return nil, err
	}

	img.URL = &url
	logger.Info(ctx, "image generated", "video_id", req.VideoID, "image_id", id)
	return img, nil
}

// resolve 读取图片记录；URL 尚未回填时向对象存储查询并回填
func (s *ImageService) resolve(ctx context.Context, key entity.ResourceKey) (*entity.Image, error) {
	img, err := s.images.Get(ctx, key)
	if err != nil || img == nil || img.URL != nil {
		return img, err
	}
	url, err := s.objects.ResolveURL(ctx, img.StorageRef)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return img, nil
	}
	if err := s.images.SetURL(ctx, img.ID, url); err != nil {
		return nil, err
	}
	img.URL = &url
	return img, nil
}

// List 列出视频下已生成的图片
func (s *ImageService) List(ctx context.Context, ownerID, videoID string) ([]*entity.Image, error) {
	return s.images.ListByVideo(ctx, ownerID, videoID)
}
