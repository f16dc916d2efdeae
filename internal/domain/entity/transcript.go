package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TranscriptEntry 一条字幕片段
type TranscriptEntry struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Transcript 已缓存的视频字幕，(owner_id, video_id) 唯一
type Transcript struct {
	ID        string       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID   string       `json:"owner_id" gorm:"type:varchar(128);not null;uniqueIndex:uk_transcripts_owner_video,priority:1"`
	VideoID   string       `json:"video_id" gorm:"type:varchar(64);not null;uniqueIndex:uk_transcripts_owner_video,priority:2"`
	Segments  JSONDocument `json:"segments" gorm:"type:jsonb;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

func (Transcript) TableName() string {
	return "transcripts"
}

// Key 返回资源键
func (t *Transcript) Key() ResourceKey {
	return ResourceKey{OwnerID: t.OwnerID, ResourceID: t.VideoID}
}

// JSONDocument 以文本形式写入 jsonb 列的 JSON 文档
type JSONDocument json.RawMessage

// Value 驱动写入
func (d JSONDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "null", nil
	}
	return string(d), nil
}

// Scan 驱动读取
func (d *JSONDocument) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = nil
	case []byte:
		*d = append((*d)[:0], v...)
	case string:
		*d = JSONDocument(v)
	default:
		return fmt.Errorf("json document: unsupported source %T", src)
	}
	return nil
}

func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *JSONDocument) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}

// NewTranscript 根据片段构造字幕记录
func NewTranscript(key ResourceKey, entries []TranscriptEntry) (*Transcript, error) {
	if entries == nil {
		entries = []TranscriptEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript entries: %w", err)
	}
	return &Transcript{OwnerID: key.OwnerID, VideoID: key.ResourceID, Segments: raw}, nil
}

// Entries 解析片段
func (t *Transcript) Entries() ([]TranscriptEntry, error) {
	if len(t.Segments) == 0 {
		return []TranscriptEntry{}, nil
	}
	var out []TranscriptEntry
	if err := json.Unmarshal(t.Segments, &out); err != nil {
		return nil, fmt.Errorf("unmarshal transcript entries: %w", err)
	}
	return out, nil
}

// FormatTimestamp 把秒数格式化为 m:ss
func FormatTimestamp(offset time.Duration) string {
	if offset < 0 {
		offset = 0
	}
	total := int(offset / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
