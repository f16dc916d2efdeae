package errclass

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	apperrors "vidassist-api/pkg/errors"
)

// FromProvider 适配生成式 AI 提供方（对话/标题/图像）的原始错误
func FromProvider(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.KindProviderTimeout, MsgProviderTimeout)
	}
	if stderrors.Is(err, context.Canceled) {
		return err
	}

	msg := strings.ToLower(err.Error())
	// 明确的过载文案优先；其次是 429/限流；"503"、"unavailable" 这类宽泛信号最后判断
	switch {
	case strings.Contains(msg, "overloaded"):
		return apperrors.Wrap(err, apperrors.KindProviderOverloaded, MsgProviderOverloaded)
	case IsRateLimitMessage(msg):
		return apperrors.Wrap(err, apperrors.KindProviderRateLimited, MsgProviderRateLimited)
	case IsOverloadedMessage(msg):
		return apperrors.Wrap(err, apperrors.KindProviderOverloaded, MsgProviderOverloaded)
	case IsContentPolicyMessage(msg):
		return apperrors.Wrap(err, apperrors.KindContentPolicyViolation, MsgContentPolicy)
	default:
		return apperrors.Wrap(err, apperrors.KindUnknown, MsgUnknown)
	}
}

// ProviderRetriesExhausted 重试预算耗尽后的统一错误
func ProviderRetriesExhausted(err error) error {
	if apperrors.IsKind(err, apperrors.KindProviderRateLimited) || apperrors.IsKind(err, apperrors.KindContentPolicyViolation) {
		return err
	}
	return apperrors.Wrap(err, apperrors.KindProviderOverloaded, MsgProviderRetries)
}

// IsOverloadedMessage 上游过载信号
func IsOverloadedMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "model is overloaded") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "unavailable")
}

// IsRateLimitMessage 上游限流信号
func IsRateLimitMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "too many requests")
}

var policyKeywords = []string{"content_policy", "content policy", "safety", "blocked", "rejected"}

// IsContentPolicyMessage 内容策略拒绝信号
func IsContentPolicyMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, kw := range policyKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// AuthFailure 认证提供方的原始失败信号
type AuthFailure struct {
	Status    int
	Transient bool
	Err       error
}

func (f *AuthFailure) Error() string {
	if f.Err != nil {
		return "auth failure: " + f.Err.Error()
	}
	return "auth failure"
}

func (f *AuthFailure) Unwrap() error { return f.Err }

// FromAuth 适配认证提供方错误
func FromAuth(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	var failure *AuthFailure
	if !stderrors.As(err, &failure) {
		return apperrors.Wrap(err, apperrors.KindUnauthorized, MsgUnauthorized)
	}
	if !failure.Transient {
		return apperrors.Wrap(err, apperrors.KindUnauthorized, MsgUnauthorized)
	}
	if failure.Status == http.StatusTooManyRequests {
		return apperrors.Wrap(err, apperrors.KindAuthTransient, MsgAuthRateLimited).WithStatus(http.StatusTooManyRequests)
	}
	return apperrors.Wrap(err, apperrors.KindAuthTransient, MsgAuthUnavailable)
}

// FromStore 适配文档存储的连接类失败；其余错误原样返回
// 驱动特有的错误码由各存储实现先行判断。
func FromStore(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	if IsConnectivityError(err) {
		return apperrors.Wrap(err, apperrors.KindStoreUnavailable, MsgStoreUnavailable)
	}
	return err
}

// IsConnectivityError 判断是否为网络/连接层失败
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, driver.ErrBadConn) ||
		stderrors.Is(err, syscall.ECONNREFUSED) ||
		stderrors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "failed to connect")
}
