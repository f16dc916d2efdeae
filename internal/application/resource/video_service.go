package resource

import (
	"context"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/domain/repository"
	"vidassist-api/pkg/logger"
)

// Result GetOrCreateResource 的统一返回
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	IsNew   bool   `json:"isNew"`

	// Status 失败时建议的 HTTP 状态码
	Status int `json:"-"`
}

// VideoService 视频分析资源
type VideoService struct {
	gate   *Gate[entity.Video]
	videos repository.VideoRepository
}

// NewVideoService 创建视频分析资源服务
func NewVideoService(videos repository.VideoRepository, limits LimitChecker, usage UsageRecorder) *VideoService {
	build := func(_ context.Context, key entity.ResourceKey) (*entity.Video, error) {
		return &entity.Video{OwnerID: key.OwnerID, VideoID: key.ResourceID}, nil
	}
	return &VideoService{
		gate:   NewGate[entity.Video](entity.FeatureAnalyseVideo, videos, limits, usage, build),
		videos: videos,
	}
}

// GetOrCreateResource 获取或创建一次视频分析
// shouldProcess 只决定未命中时是否创建；是否计费完全由原子插入的结果决定。
func (s *VideoService) GetOrCreateResource(ctx context.Context, resourceID, ownerID string, shouldProcess bool) *Result[entity.Video] {
	key := entity.NewResourceKey(ownerID, resourceID)
	ctx = logger.WithContext(ctx, logger.ResourceIDKey, key.ResourceID)

	video, created, err := s.gate.GetOrCreate(ctx, key, shouldProcess)
	if err != nil {
		classified := errclass.Observe(err)
		logger.Error(ctx, "get or create video resource failed", err, "kind", string(classified.Kind))
		return &Result[entity.Video]{Success: false, Error: classified.UserMessage, Status: classified.HTTPStatus}
	}
	return &Result[entity.Video]{Success: true, Data: video, IsNew: created}
}

// Recent 列出用户最近分析过的视频
func (s *VideoService) Recent(ctx context.Context, ownerID string, limit int) ([]*entity.Video, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.videos.ListByOwner(ctx, ownerID, limit)
}
