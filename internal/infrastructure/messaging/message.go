// Package messaging 提供基于 Redis Streams 的事件发布
package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stream 流名称
type Stream string

const (
	StreamUsageEvents  Stream = "stream:usage:events"
	StreamChatMessages Stream = "stream:chat:messages"
)

// Envelope 写入流的一条事件
// 路由用字段平铺在 stream entry 上，消费方无需解码载荷即可按类型、用户过滤。
type Envelope struct {
	ID         string
	Type       string
	OwnerID    string
	ResourceID string
	Attributes map[string]string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// NewEnvelope 编码载荷
func NewEnvelope(id, eventType, ownerID string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:         id,
		Type:       eventType,
		OwnerID:    ownerID,
		Attributes: map[string]string{},
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// With 追加一个非空属性
func (e *Envelope) With(key, value string) *Envelope {
	if value != "" {
		e.Attributes[key] = value
	}
	return e
}

// Values 转为 XADD 字段；属性以 "attr." 前缀平铺
func (e *Envelope) Values() map[string]any {
	values := map[string]any{
		"id":          e.ID,
		"type":        e.Type,
		"owner_id":    e.OwnerID,
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
		"payload":     string(e.Payload),
	}
	if e.ResourceID != "" {
		values["resource_id"] = e.ResourceID
	}
	for k, v := range e.Attributes {
		values["attr."+k] = v
	}
	return values
}

// Decode 解码载荷
func Decode[T any](values map[string]any) (*T, error) {
	raw, ok := values["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("stream entry has no payload")
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}
