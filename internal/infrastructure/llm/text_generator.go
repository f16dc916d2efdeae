package llm

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"vidassist-api/internal/application/errclass"
	apperrors "vidassist-api/pkg/errors"
)

type modelSource interface {
	Default(ctx context.Context) (model.BaseChatModel, error)
}

// TextGenerator 基于默认对话模型的单次生成，实现 service.TextGenerator
type TextGenerator struct {
	models modelSource
}

// NewTextGenerator 创建文本生成器
func NewTextGenerator(models *EinoFactory) *TextGenerator {
	return &TextGenerator{models: models}
}

// GenerateText 生成一段文本
func (g *TextGenerator) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	chatModel, err := g.models.Default(ctx)
	if err != nil {
		return "", err
	}

	msgs := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	msgs = append(msgs, schema.UserMessage(prompt))

	out, err := chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", errclass.FromProvider(err)
	}
	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", apperrors.New(apperrors.KindUnknown, errclass.MsgUnknown).WithDetail("empty completion")
	}
	return text, nil
}
