package llm

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/infrastructure/resilience"
	einoobs "vidassist-api/internal/observability/eino"
)

// resilientModel 在模型调用外包一层重试与熔断，并把原始错误归类
// 流式调用只重试建立阶段；开始输出后的错误由调用方处理。
type resilientModel struct {
	inner    model.ToolCallingChatModel
	provider string
	generate *resilience.Executor[*schema.Message]
	stream   *resilience.Executor[*schema.StreamReader[*schema.Message]]
}

func newResilientModel(inner model.ToolCallingChatModel, provider string, policy resilience.Policy) *resilientModel {
	return &resilientModel{
		inner:    inner,
		provider: provider,
		generate: resilience.NewExecutor[*schema.Message](policy),
		stream:   resilience.NewExecutor[*schema.StreamReader[*schema.Message]](policy),
	}
}

func (m *resilientModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	ctx = einoobs.WithProvider(ctx, m.provider)
	return m.generate.Get(ctx, func(ctx context.Context) (*schema.Message, error) {
		out, err := m.inner.Generate(ctx, input, opts...)
		return out, errclass.FromProvider(err)
	})
}

func (m *resilientModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	ctx = einoobs.WithProvider(ctx, m.provider)
	return m.stream.Get(ctx, func(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
		out, err := m.inner.Stream(ctx, input, opts...)
		return out, errclass.FromProvider(err)
	})
}

// WithTools 绑定工具后的模型共享同一组执行器（同一熔断状态）
func (m *resilientModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := m.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &resilientModel{
		inner:    bound,
		provider: m.provider,
		generate: m.generate,
		stream:   m.stream,
	}, nil
}
