package entity

import "time"

// Video 一次视频分析的计费记录，(owner_id, video_id) 唯一
type Video struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID   string    `json:"owner_id" gorm:"type:varchar(128);not null;uniqueIndex:uk_videos_owner_video,priority:1"`
	VideoID   string    `json:"video_id" gorm:"type:varchar(64);not null;uniqueIndex:uk_videos_owner_video,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Video) TableName() string {
	return "videos"
}

// Key 返回资源键
func (v *Video) Key() ResourceKey {
	return ResourceKey{OwnerID: v.OwnerID, ResourceID: v.VideoID}
}

// VideoDetails 视频元信息（来自外部提供方，只做缓存，不落库）
type VideoDetails struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channel_title"`
	ChannelID    string    `json:"channel_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Views        int64     `json:"views"`
	Likes        int64     `json:"likes"`
	PublishedAt  time.Time `json:"published_at"`
}
