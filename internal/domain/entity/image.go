package entity

import "time"

// Image 生成的缩略图；URL 由存储层异步可见后回填
type Image struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID    string    `json:"owner_id" gorm:"type:varchar(128);not null;index:idx_images_owner_video,priority:1"`
	VideoID    string    `json:"video_id" gorm:"type:varchar(64);not null;index:idx_images_owner_video,priority:2"`
	StorageRef string    `json:"storage_ref" gorm:"type:varchar(512);not null"`
	Prompt     string    `json:"prompt" gorm:"type:text"`
	URL        *string   `json:"url,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Image) TableName() string {
	return "images"
}

// Key 返回资源键（videoID/imageID）
func (i *Image) Key() ResourceKey {
	return ResourceKey{OwnerID: i.OwnerID, ResourceID: ArtifactResourceID(i.VideoID, i.ID)}
}
