// Package service 定义跨层的协作方契约（port）
// 基础设施层实现这些接口，应用层只依赖接口，便于测试替换。
package service

import (
	"context"
	"time"

	"vidassist-api/internal/domain/entity"
)

// Identity 当前认证用户
type Identity struct {
	OwnerID string
	Email   string
	Plan    string
}

// Authenticator 认证提供方
// 实现必须把自身失败适配为带 Kind 的错误（AuthTransient / Unauthorized）。
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (*Identity, error)
}

// Entitlements 功能开关与额度判定
type Entitlements interface {
	// CheckLimit 判断 owner 在当前周期内是否还能使用 feature
	CheckLimit(ctx context.Context, ownerID string, feature entity.Feature) (bool, error)
	// IsEnabled 判断 owner 的套餐是否开放 feature
	IsEnabled(ctx context.Context, ownerID string, feature entity.Feature) (bool, error)
}

// Metering 计量提供方
type Metering interface {
	RecordUsage(ctx context.Context, event *entity.UsageEvent) error
	// Identify 幂等登记，可安全记忆化
	Identify(ctx context.Context, ownerID string) error
}

// ObjectStore 对象存储
// ResolveURL 在对象尚未对外可见时返回 ("", nil)。
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (ref string, err error)
	ResolveURL(ctx context.Context, ref string) (string, error)
}

// TranscriptProvider 外部字幕提取
// 视频确实没有字幕时返回 KindResourceUnavailable。
type TranscriptProvider interface {
	FetchTranscript(ctx context.Context, videoID string) ([]entity.TranscriptEntry, error)
}

// VideoDetailsProvider 视频元信息
type VideoDetailsProvider interface {
	GetVideoDetails(ctx context.Context, videoID string) (*entity.VideoDetails, error)
}

// ImageProvider 图像生成，返回 PNG 字节
type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// TextGenerator 单次文本生成（标题等）
type TextGenerator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// SessionStore 会话 -> 资源 ID 的建议性缓存
// 丢失条目只影响便利性，不影响正确性。
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (string, bool)
	Put(ctx context.Context, sessionID, resourceID string)
}

// Clock 便于测试的时间源
type Clock interface {
	Now() time.Time
}

// SystemClock 真实时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
