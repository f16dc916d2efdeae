// Package eino 注册 Eino 全局回调：模型与工具调用的追踪和指标
package eino

import (
	"context"
	"sync"

	einocb "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var registerOnce sync.Once

// Init 进程级注册一次全局回调；对话编排与标题生成的模型、工具调用都经过这里
func Init() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(newHandler())
	})
}

func newHandler() einocb.Handler {
	return cbtemplate.NewHandlerHelper().
		ChatModel(newChatModelCallbackHandler()).
		Tool(newToolCallbackHandler()).
		Handler()
}

type providerKey struct{}

// WithProvider 标记本次模型调用的提供方名称，供回调打点
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey{}, provider)
}

// ProviderFromContext 未标记时返回 "unknown"
func ProviderFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(providerKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
