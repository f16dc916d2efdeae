package entity

import "time"

// Owner 计量侧登记过的用户身份
type Owner struct {
	ID           string    `json:"id" gorm:"type:varchar(128);primaryKey"`
	Plan         string    `json:"plan" gorm:"type:varchar(32);not null;default:'free'"`
	IdentifiedAt time.Time `json:"identified_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Owner) TableName() string {
	return "owners"
}
