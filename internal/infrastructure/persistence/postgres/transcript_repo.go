package postgres

import (
	"context"

	"vidassist-api/internal/domain/entity"
)

// TranscriptRepository 字幕缓存仓储
type TranscriptRepository struct {
	client *Client
}

// NewTranscriptRepository 创建字幕仓储
func NewTranscriptRepository(client *Client) *TranscriptRepository {
	return &TranscriptRepository{client: client}
}

func (r *TranscriptRepository) Get(ctx context.Context, key entity.ResourceKey) (*entity.Transcript, error) {
	return findOne[entity.Transcript](ctx, r.client.db, "TranscriptRepository.Get",
		"owner_id = ? AND video_id = ?", key.OwnerID, key.ResourceID)
}

func (r *TranscriptRepository) InsertIfAbsent(ctx context.Context, key entity.ResourceKey, transcript *entity.Transcript) (bool, error) {
	transcript.OwnerID, transcript.VideoID = key.OwnerID, key.ResourceID
	return insertIfAbsent(ctx, r.client.db, "TranscriptRepository.InsertIfAbsent", transcript)
}
