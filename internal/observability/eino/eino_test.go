package eino

import (
	"context"
	"errors"
	"testing"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"vidassist-api/pkg/metrics"
)

func TestProviderFromContext(t *testing.T) {
	assert.Equal(t, "unknown", ProviderFromContext(context.Background()))
	assert.Equal(t, "openai", ProviderFromContext(WithProvider(context.Background(), "openai")))
}

func TestChatModelCallbacks_RecordMetrics(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := WithProvider(context.Background(), "cb-test")
	info := &einocb.RunInfo{Name: "chat", Type: "OpenAI"}

	ctx = h.OnStart(ctx, info, &model.CallbackInput{
		Messages: []*schema.Message{schema.UserMessage("hi")},
		Config:   &model.Config{Model: "m1"},
	})
	h.OnEnd(ctx, info, &model.CallbackOutput{
		Config:     &model.Config{Model: "m1"},
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 3},
	})
	h.OnError(WithProvider(context.Background(), "cb-test"), info, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb-test", "m1", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb-test", "", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("cb-test", "m1", "prompt")))
}

func TestChatModelCallbacks_StreamOutput(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := WithProvider(context.Background(), "cb-stream")

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m2"}})
	h.OnEndWithStreamOutput(ctx, nil, schema.StreamReaderFromArray([]*model.CallbackOutput{
		{Message: schema.AssistantMessage("hel", nil)},
		{Message: schema.AssistantMessage("lo", nil), TokenUsage: &model.TokenUsage{PromptTokens: 7, CompletionTokens: 2}},
	}))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("cb-stream", "m2", "completion")) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("cb-stream", "m2", "success")))
}

func TestInit_Idempotent(t *testing.T) {
	assert.NotNil(t, newHandler())
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
