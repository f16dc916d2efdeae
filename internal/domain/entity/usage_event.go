package entity

import "time"

// UsageEvent 计量事件，只追加
type UsageEvent struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID    string    `json:"owner_id" gorm:"type:varchar(128);not null;index:idx_usage_owner_feature,priority:1"`
	Feature    Feature   `json:"feature" gorm:"type:varchar(32);not null;index:idx_usage_owner_feature,priority:2"`
	ResourceID string    `json:"resource_id" gorm:"type:varchar(160)"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (UsageEvent) TableName() string {
	return "usage_events"
}
