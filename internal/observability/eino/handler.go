package eino

import (
	"context"
	"errors"
	"io"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vidassist-api/pkg/metrics"
	"vidassist-api/pkg/tracer"
)

type callKey struct{}

// modelCall 单次模型调用的打点状态，OnStart 写入，结束回调读取
type modelCall struct {
	start    time.Time
	provider string
	model    string
	span     trace.Span
}

func callFromContext(ctx context.Context) *modelCall {
	if c, ok := ctx.Value(callKey{}).(*modelCall); ok {
		return c
	}
	return nil
}

// finish 上报次数、耗时与 token，并结束 span；未经 OnStart 的调用只计次数
func (c *modelCall) finish(ctx context.Context, usage *model.TokenUsage, err error) {
	provider, modelName := ProviderFromContext(ctx), ""
	if c != nil {
		provider, modelName = c.provider, c.model
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LLMCallTotal.WithLabelValues(provider, modelName, status).Inc()
	if c == nil {
		return
	}
	metrics.LLMCallDuration.WithLabelValues(provider, modelName).Observe(time.Since(c.start).Seconds())

	if usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(provider, modelName, "completion").Add(float64(usage.CompletionTokens))
		c.span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	tracer.RecordError(c.span, err)
	c.span.End()
}

func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			call := &modelCall{start: time.Now(), provider: ProviderFromContext(ctx)}
			if input != nil && input.Config != nil {
				call.model = input.Config.Model
			}
			attrs := []attribute.KeyValue{
				attribute.String("llm.provider", call.provider),
				attribute.String("llm.model", call.model),
			}
			if input != nil {
				attrs = append(attrs, attribute.Int("llm.messages", len(input.Messages)), attribute.Int("llm.tools", len(input.Tools)))
			}
			if info != nil {
				attrs = append(attrs, attribute.String("eino.node_name", info.Name))
			}
			ctx, call.span = tracer.Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return context.WithValue(ctx, callKey{}, call)
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			call := callFromContext(ctx)
			if call != nil && output != nil && output.Config != nil && output.Config.Model != "" {
				call.model = output.Config.Model
			}
			var usage *model.TokenUsage
			if output != nil {
				usage = output.TokenUsage
			}
			call.finish(ctx, usage, nil)
			return ctx
		},

		// 流式输出由回调持有一份副本，读完后才能拿到最终用量
		OnEndWithStreamOutput: func(ctx context.Context, _ *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			call := callFromContext(ctx)
			go func() {
				defer output.Close()
				var usage *model.TokenUsage
				for {
					chunk, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						call.finish(ctx, usage, err)
						return
					}
					if chunk == nil {
						continue
					}
					if chunk.TokenUsage != nil {
						usage = chunk.TokenUsage
					}
					if call != nil && chunk.Config != nil && chunk.Config.Model != "" {
						call.model = chunk.Config.Model
					}
				}
				call.finish(ctx, usage, nil)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			callFromContext(ctx).finish(ctx, nil, err)
			return ctx
		},
	}
}

// 工具调用只做追踪，次数统计在工具内部完成
func newToolCallbackHandler() *cbtemplate.ToolCallbackHandler {
	return &cbtemplate.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			attrs := []attribute.KeyValue{attribute.String("llm.provider", ProviderFromContext(ctx))}
			if info != nil {
				attrs = append(attrs, attribute.String("tool.name", info.Name))
			}
			if input != nil {
				attrs = append(attrs, attribute.Int("tool.args_bytes", len(input.ArgumentsInJSON)))
			}
			ctx, _ = tracer.Start(ctx, "tool.invoke", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, _ *tool.CallbackOutput) context.Context {
			trace.SpanFromContext(ctx).End()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			span := trace.SpanFromContext(ctx)
			tracer.RecordError(span, err)
			span.End()
			return ctx
		},
	}
}
