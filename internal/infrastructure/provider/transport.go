// Package provider 实现外部内容提供方：字幕提取、视频元信息与图像生成
// 每个提供方在自身边界把原始失败适配为带 Kind 的错误，并经 resilience 执行器重试。
package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vidassist-api/internal/application/errclass"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/metrics"
)

// newTransport 限制单主机连接数，下游故障时不至于堆积大量连接
func newTransport() *http.Transport {
	return &http.Transport{
		MaxConnsPerHost:     50,
		MaxIdleConnsPerHost: 10,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// newHTTPClient 带追踪的 HTTP 客户端
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(newTransport()),
	}
}

// StatusError 提供方返回的非 2xx 响应
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// classifyStatus 按状态码归类；404 的含义由各提供方自行决定
func classifyStatus(provider string, status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	raw := &StatusError{Provider: provider, StatusCode: status, Body: snippet}

	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.Wrap(raw, apperrors.KindProviderRateLimited, errclass.MsgProviderRateLimited)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apperrors.Wrap(raw, apperrors.KindProviderTimeout, errclass.MsgProviderTimeout)
	case status >= 500:
		return apperrors.Wrap(raw, apperrors.KindProviderOverloaded, errclass.MsgProviderOverloaded)
	default:
		return apperrors.Wrap(raw, apperrors.KindUnknown, errclass.MsgUnknown)
	}
}

// classifyTransport 网络层失败按过载处理，可以重试
func classifyTransport(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errclass.FromProvider(err)
	}
	if errclass.IsConnectivityError(err) {
		return apperrors.Wrap(err, apperrors.KindProviderOverloaded, errclass.MsgProviderOverloaded)
	}
	return errclass.FromProvider(err)
}

func observe(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.KindOf(err))
	}
	metrics.ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
}
