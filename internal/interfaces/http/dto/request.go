package dto

import (
	"strings"

	"vidassist-api/internal/domain/entity"
)

// ResourceRequest 视频资源请求（/transcript 与 /resources 共用）
// resourceId 与 videoId 任选其一；shouldProcess 省略时视为 true。
type ResourceRequest struct {
	ResourceID    string `json:"resourceId"`
	VideoID       string `json:"videoId"`
	ShouldProcess *bool  `json:"shouldProcess"`
}

// ID 请求体里携带的资源 ID
func (r *ResourceRequest) ID() string {
	if id := strings.TrimSpace(r.ResourceID); id != "" {
		return id
	}
	return strings.TrimSpace(r.VideoID)
}

// Process 未命中时是否创建
func (r *ResourceRequest) Process() bool {
	return r.ShouldProcess == nil || *r.ShouldProcess
}

// ChatRequest 对话请求
type ChatRequest struct {
	SessionID  string               `json:"sessionId"`
	ID         string               `json:"id"`
	ResourceID string               `json:"resourceId"`
	VideoID    string               `json:"videoId"`
	Data       *ChatRequestData     `json:"data,omitempty"`
	Messages   []entity.ChatMessage `json:"messages" binding:"required,min=1"`
}

// ChatRequestData 客户端附带的额外数据
type ChatRequestData struct {
	VideoID string `json:"videoId"`
}

// Session 会话 ID；兼容只传 id 的客户端
func (r *ChatRequest) Session() string {
	if s := strings.TrimSpace(r.SessionID); s != "" {
		return s
	}
	return strings.TrimSpace(r.ID)
}

// BodyResourceID 请求体中的资源 ID：resourceId > videoId > data.videoId
func (r *ChatRequest) BodyResourceID() string {
	for _, v := range []string{r.ResourceID, r.VideoID} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	if r.Data != nil {
		return strings.TrimSpace(r.Data.VideoID)
	}
	return ""
}

// GenerateTitleRequest 标题生成请求
type GenerateTitleRequest struct {
	Instructions string `json:"instructions"`
}

// GenerateImageRequest 缩略图生成请求
type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
}
