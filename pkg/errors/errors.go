// Package errors 提供统一的错误定义
// 所有上游失败在协作方边界被适配为带 Kind 的 AppError，业务层只按 Kind 分支。
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind 错误类别（封闭枚举）
type Kind string

// 预定义错误类别
const (
	KindUnknown                Kind = "unknown"
	KindInvalidInput           Kind = "invalid_input"
	KindUnauthorized           Kind = "unauthorized"
	KindAuthTransient          Kind = "auth_transient"
	KindQuotaExceeded          Kind = "quota_exceeded"
	KindStoreUnavailable       Kind = "store_unavailable"
	KindProviderOverloaded     Kind = "provider_overloaded"
	KindProviderRateLimited    Kind = "provider_rate_limited"
	KindProviderTimeout        Kind = "provider_timeout"
	KindContentPolicyViolation Kind = "content_policy_violation"
	KindArtifactTimeout        Kind = "artifact_timeout"
	KindResourceUnavailable    Kind = "resource_unavailable"
	KindMissingContext         Kind = "missing_context"
	KindFeatureDisabled        Kind = "feature_disabled"
)

// Retryable 调用方是否可以稍后重试
func (k Kind) Retryable() bool {
	switch k {
	case KindAuthTransient, KindStoreUnavailable, KindProviderOverloaded,
		KindProviderRateLimited, KindProviderTimeout, KindArtifactTimeout:
		return true
	default:
		return false
	}
}

// AppError 应用错误
type AppError struct {
	Kind       Kind   `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按 Kind 比较，便于 errors.Is(err, ErrQuotaExceeded) 之类的判断
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithStatus 覆盖默认 HTTP 状态码
func (e *AppError) WithStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// New 创建新的应用错误
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		HTTPStatus: kindToHTTPStatus(kind),
	}
}

// Wrap 包装错误
func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Message:    message,
		HTTPStatus: kindToHTTPStatus(kind),
		Err:        err,
	}
}

// kindToHTTPStatus 错误类别转 HTTP 状态码
func kindToHTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindMissingContext:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindQuotaExceeded, KindFeatureDisabled:
		return http.StatusForbidden
	case KindResourceUnavailable:
		return http.StatusNotFound
	case KindProviderRateLimited:
		return http.StatusTooManyRequests
	case KindAuthTransient, KindStoreUnavailable, KindProviderOverloaded,
		KindProviderTimeout, KindArtifactTimeout:
		return http.StatusServiceUnavailable
	case KindContentPolicyViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误（只用于 errors.Is 比较，不要修改）
var (
	ErrInvalidInput        = New(KindInvalidInput, "")
	ErrUnauthorized        = New(KindUnauthorized, "")
	ErrQuotaExceeded       = New(KindQuotaExceeded, "")
	ErrStoreUnavailable    = New(KindStoreUnavailable, "")
	ErrArtifactTimeout     = New(KindArtifactTimeout, "")
	ErrResourceUnavailable = New(KindResourceUnavailable, "")
	ErrMissingContext      = New(KindMissingContext, "")
)

// IsAppError 检查错误链中是否存在 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, KindUnknown, "unknown error")
}

// KindOf 返回错误链中第一个 AppError 的类别
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
