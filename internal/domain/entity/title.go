package entity

import "time"

// Title 生成的视频标题
type Title struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID   string    `json:"owner_id" gorm:"type:varchar(128);not null;index:idx_titles_owner_video,priority:1"`
	VideoID   string    `json:"video_id" gorm:"type:varchar(64);not null;index:idx_titles_owner_video,priority:2"`
	Title     string    `json:"title" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Title) TableName() string {
	return "titles"
}

// Key 返回资源键（videoID/titleID）
func (t *Title) Key() ResourceKey {
	return ResourceKey{OwnerID: t.OwnerID, ResourceID: ArtifactResourceID(t.VideoID, t.ID)}
}
