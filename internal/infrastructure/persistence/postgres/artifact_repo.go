package postgres

import (
	"context"
	"fmt"

	"vidassist-api/internal/domain/entity"
	apperrors "vidassist-api/pkg/errors"
)

func splitArtifactKey(key entity.ResourceKey) (videoID, artifactID string, err error) {
	videoID, artifactID, ok := entity.SplitArtifactResourceID(key.ResourceID)
	if !ok {
		return "", "", apperrors.New(apperrors.KindInvalidInput, "invalid artifact resource id").
			WithDetail("resource_id=" + key.ResourceID)
	}
	return videoID, artifactID, nil
}

// TitleRepository 生成标题仓储
type TitleRepository struct {
	client *Client
}

// NewTitleRepository 创建标题仓储
func NewTitleRepository(client *Client) *TitleRepository {
	return &TitleRepository{client: client}
}

func (r *TitleRepository) Get(ctx context.Context, key entity.ResourceKey) (*entity.Title, error) {
	videoID, id, err := splitArtifactKey(key)
	if err != nil {
		return nil, err
	}
	return findOne[entity.Title](ctx, r.client.db, "TitleRepository.Get",
		"owner_id = ? AND video_id = ? AND id = ?", key.OwnerID, videoID, id)
}

func (r *TitleRepository) InsertIfAbsent(ctx context.Context, key entity.ResourceKey, title *entity.Title) (bool, error) {
	videoID, id, err := splitArtifactKey(key)
	if err != nil {
		return false, err
	}
	title.OwnerID, title.VideoID, title.ID = key.OwnerID, videoID, id
	return insertIfAbsent(ctx, r.client.db, "TitleRepository.InsertIfAbsent", title)
}

// ListByVideo 某视频下的全部标题，新的在前
func (r *TitleRepository) ListByVideo(ctx context.Context, ownerID, videoID string) ([]*entity.Title, error) {
	ctx, span := tracer.Start(ctx, "postgres.TitleRepository.ListByVideo")
	defer span.End()

	var titles []*entity.Title
	err := getDB(ctx, r.client.db).
		Where("owner_id = ? AND video_id = ?", ownerID, videoID).
		Order("created_at DESC").
		Find(&titles).Error
	if err != nil {
		span.RecordError(err)
		return nil, translate(fmt.Errorf("failed to list titles: %w", err))
	}
	return titles, nil
}

// ImageRepository 生成图片仓储
type ImageRepository struct {
	client *Client
}

// NewImageRepository 创建图片仓储
func NewImageRepository(client *Client) *ImageRepository {
	return &ImageRepository{client: client}
}

func (r *ImageRepository) Get(ctx context.Context, key entity.ResourceKey) (*entity.Image, error) {
	videoID, id, err := splitArtifactKey(key)
	if err != nil {
		return nil, err
	}
	return findOne[entity.Image](ctx, r.client.db, "ImageRepository.Get",
		"owner_id = ? AND video_id = ? AND id = ?", key.OwnerID, videoID, id)
}

func (r *ImageRepository) InsertIfAbsent(ctx context.Context, key entity.ResourceKey, image *entity.Image) (bool, error) {
	videoID, id, err := splitArtifactKey(key)
	if err != nil {
		return false, err
	}
	image.OwnerID, image.VideoID, image.ID = key.OwnerID, videoID, id
	return insertIfAbsent(ctx, r.client.db, "ImageRepository.InsertIfAbsent", image)
}

// ListByVideo 某视频下的全部图片，新的在前
func (r *ImageRepository) ListByVideo(ctx context.Context, ownerID, videoID string) ([]*entity.Image, error) {
	ctx, span := tracer.Start(ctx, "postgres.ImageRepository.ListByVideo")
	defer span.End()

	var images []*entity.Image
	err := getDB(ctx, r.client.db).
		Where("owner_id = ? AND video_id = ?", ownerID, videoID).
		Order("created_at DESC").
		Find(&images).Error
	if err != nil {
		span.RecordError(err)
		return nil, translate(fmt.Errorf("failed to list images: %w", err))
	}
	return images, nil
}

// SetURL 回填对外可见的地址
func (r *ImageRepository) SetURL(ctx context.Context, id, url string) error {
	ctx, span := tracer.Start(ctx, "postgres.ImageRepository.SetURL")
	defer span.End()

	err := getDB(ctx, r.client.db).
		Model(&entity.Image{}).
		Where("id = ?", id).
		Update("url", url).Error
	if err != nil {
		span.RecordError(err)
		return translate(fmt.Errorf("failed to set image url: %w", err))
	}
	return nil
}
