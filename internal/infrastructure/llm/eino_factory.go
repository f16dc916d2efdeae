// Package llm 提供对话模型工厂与单次文本生成
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"vidassist-api/internal/config"
	"vidassist-api/internal/infrastructure/resilience"
)

const defaultModelTimeout = 60 * time.Second

type modelCreator func(ctx context.Context, cfg *openai.ChatModelConfig) (model.ToolCallingChatModel, error)

// EinoFactory 按提供方名称懒加载并缓存带重试熔断的对话模型
type EinoFactory struct {
	config *config.LLMConfig
	create modelCreator

	mu     sync.Mutex
	models map[string]model.BaseChatModel
}

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
		create: func(ctx context.Context, cfg *openai.ChatModelConfig) (model.ToolCallingChatModel, error) {
			return openai.NewChatModel(ctx, cfg)
		},
	}
}

// Get 获取指定提供方的模型；name 为空时使用默认提供方
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("llm provider %q is not configured (known: %v)", name, f.providerNames())
	}
	chatModel, err := f.create(ctx, chatModelConfig(providerCfg))
	if err != nil {
		return nil, fmt.Errorf("create chat model %s: %w", name, err)
	}

	wrapped := newResilientModel(chatModel, name, resilience.FromConfig("llm-"+name, f.config.Retry))
	f.models[name] = wrapped
	return wrapped, nil
}

// Default 返回默认提供方的模型
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

// Warm 启动时构建默认模型，配置错误在接流量之前暴露
func (f *EinoFactory) Warm(ctx context.Context) error {
	_, err := f.Default(ctx)
	return err
}

func (f *EinoFactory) providerNames() []string {
	names := make([]string, 0, len(f.config.Providers))
	for name := range f.config.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func chatModelConfig(p config.ProviderConfig) *openai.ChatModelConfig {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	temperature := float32(p.Temperature)
	out := &openai.ChatModelConfig{
		APIKey:      p.APIKey,
		BaseURL:     p.BaseURL,
		Model:       p.Model,
		Temperature: &temperature,
		Timeout:     timeout,
	}
	if p.MaxTokens > 0 {
		maxTokens := p.MaxTokens
		out.MaxTokens = &maxTokens
	}
	return out
}
