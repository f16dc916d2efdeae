// Package errclass 把各协作方的原始失败翻译为封闭的错误类别，
// 并为客户端生成稳定的状态码与友好文案。
//
// 字符串匹配只允许出现在本包的 From* 适配函数中；其余代码只按 Kind 分支。
package errclass

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/metrics"
)

// 面向用户的文案
const (
	MsgAuthRateLimited       = "You're making requests too quickly. Please wait a few seconds before trying again."
	MsgAuthUnavailable       = "Authentication service is temporarily unavailable. Please wait a moment and try again."
	MsgUnauthorized          = "Unauthorized"
	MsgQuotaExceeded         = "You've reached your usage limit for this feature. Please upgrade your plan to continue."
	MsgStoreUnavailable      = "We couldn't reach the database. Please try again in a few moments."
	MsgProviderOverloaded    = "The AI model is overloaded right now. Please wait a few seconds and try again."
	MsgProviderRetries       = "The AI service could not respond after a few attempts. Please try again shortly."
	MsgProviderRateLimited   = "We're hitting a temporary rate limit. Please slow down and retry in a moment."
	MsgProviderTimeout       = "The AI service took too long to respond. Please try again."
	MsgContentPolicy         = "The request was rejected by the AI provider's content policy. Try a different description."
	MsgArtifactTimeout       = "Image saved but the URL is still processing. Please refresh in a few seconds."
	MsgTranscriptUnavailable = "Transcript not available for this video."
	MsgMissingContext        = "Video context missing"
	MsgFeatureDisabled       = "This feature is not available on your current plan, please upgrade to use it."
	MsgInvalidInput          = "Invalid request"
	MsgUnknown               = "Internal Server Error"
)

// ClassifiedError 归一化后的错误，只用于响应，不落库
type ClassifiedError struct {
	Kind        apperrors.Kind `json:"kind"`
	HTTPStatus  int            `json:"-"`
	UserMessage string         `json:"error"`
}

func (c ClassifiedError) Error() string {
	return string(c.Kind) + ": " + c.UserMessage
}

var defaultMessages = map[apperrors.Kind]string{
	apperrors.KindUnauthorized:           MsgUnauthorized,
	apperrors.KindAuthTransient:          MsgAuthUnavailable,
	apperrors.KindQuotaExceeded:          MsgQuotaExceeded,
	apperrors.KindStoreUnavailable:       MsgStoreUnavailable,
	apperrors.KindProviderOverloaded:     MsgProviderOverloaded,
	apperrors.KindProviderRateLimited:    MsgProviderRateLimited,
	apperrors.KindProviderTimeout:        MsgProviderTimeout,
	apperrors.KindContentPolicyViolation: MsgContentPolicy,
	apperrors.KindArtifactTimeout:        MsgArtifactTimeout,
	apperrors.KindResourceUnavailable:    MsgTranscriptUnavailable,
	apperrors.KindMissingContext:         MsgMissingContext,
	apperrors.KindFeatureDisabled:        MsgFeatureDisabled,
	apperrors.KindInvalidInput:           MsgInvalidInput,
}

// Classify 把任意错误映射为 ClassifiedError
// 未被适配的错误一律归为 Unknown/500，原始文本不会进入 UserMessage。
func Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{}
	}
	var classified ClassifiedError
	if stderrors.As(err, &classified) {
		return classified
	}
	if stderrors.Is(err, context.DeadlineExceeded) && !apperrors.IsAppError(err) {
		return build(apperrors.KindProviderTimeout, 0, "")
	}

	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) || appErr.Kind == apperrors.KindUnknown || appErr.Kind == "" {
		return build(apperrors.KindUnknown, http.StatusInternalServerError, MsgUnknown)
	}
	return build(appErr.Kind, appErr.HTTPStatus, appErr.Message)
}

func build(kind apperrors.Kind, status int, message string) ClassifiedError {
	if status == 0 {
		status = apperrors.New(kind, "").HTTPStatus
	}
	if message == "" {
		message = defaultMessages[kind]
	}
	if message == "" {
		message = MsgUnknown
	}
	return ClassifiedError{Kind: kind, HTTPStatus: status, UserMessage: message}
}

// Observe 分类并计数，供各边界在返回响应前调用
func Observe(err error) ClassifiedError {
	c := Classify(err)
	if c.Kind != "" {
		metrics.ClassifiedErrorsTotal.WithLabelValues(string(c.Kind), strconv.Itoa(c.HTTPStatus)).Inc()
	}
	return c
}
