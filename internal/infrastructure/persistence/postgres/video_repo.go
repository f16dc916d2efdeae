package postgres

import (
	"context"
	"fmt"

	"vidassist-api/internal/domain/entity"
)

// VideoRepository 视频分析记录仓储
type VideoRepository struct {
	client *Client
}

// NewVideoRepository 创建视频仓储
func NewVideoRepository(client *Client) *VideoRepository {
	return &VideoRepository{client: client}
}

// Get 按 (owner, video) 读取
func (r *VideoRepository) Get(ctx context.Context, key entity.ResourceKey) (*entity.Video, error) {
	return findOne[entity.Video](ctx, r.client.db, "VideoRepository.Get",
		"owner_id = ? AND video_id = ?", key.OwnerID, key.ResourceID)
}

// InsertIfAbsent 唯一插入
func (r *VideoRepository) InsertIfAbsent(ctx context.Context, key entity.ResourceKey, video *entity.Video) (bool, error) {
	video.OwnerID, video.VideoID = key.OwnerID, key.ResourceID
	return insertIfAbsent(ctx, r.client.db, "VideoRepository.InsertIfAbsent", video)
}

// ListByOwner 最近分析过的视频
func (r *VideoRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.Video, error) {
	ctx, span := tracer.Start(ctx, "postgres.VideoRepository.ListByOwner")
	defer span.End()

	var videos []*entity.Video
	err := getDB(ctx, r.client.db).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&videos).Error
	if err != nil {
		span.RecordError(err)
		return nil, translate(fmt.Errorf("failed to list videos: %w", err))
	}
	return videos, nil
}
