package provider

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/config"
	"vidassist-api/internal/infrastructure/resilience"
	apperrors "vidassist-api/pkg/errors"
)

const (
	imageProviderName = "image"
	defaultImageModel = "dall-e-3"
	defaultImageSize  = "1024x1024"
)

var allowedImageSizes = map[string]bool{
	"1024x1024": true,
	"512x512":   true,
	"256x256":   true,
	"1792x1024": true,
	"1024x1792": true,
	"1536x1024": true,
	"1024x1536": true,
}

// OpenAIImageClient 基于 OpenAI Images API 的缩略图生成
type OpenAIImageClient struct {
	client   openai.Client
	model    string
	size     string
	executor *resilience.Executor[[]byte]
}

// NewOpenAIImageClient 创建图像生成客户端；SDK 自带重试关闭，统一交给执行器
func NewOpenAIImageClient(cfg config.ImageProviderConfig) *OpenAIImageClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(newHTTPClient(cfg.Timeout)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultImageModel
	}
	size := strings.TrimSpace(cfg.Size)
	if !allowedImageSizes[size] {
		size = defaultImageSize
	}

	return &OpenAIImageClient{
		client:   openai.NewClient(opts...),
		model:    model,
		size:     size,
		executor: resilience.NewExecutor[[]byte](resilience.FromConfig("image", cfg.Retry)),
	}
}

// GenerateImage 生成一张图片并返回 PNG 字节
func (c *OpenAIImageClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "Image prompt is required")
	}
	data, err := c.executor.Get(ctx, func(ctx context.Context) ([]byte, error) {
		return c.generateOnce(ctx, prompt)
	})
	observe(imageProviderName, err)
	return data, err
}

func (c *OpenAIImageClient) generateOnce(ctx context.Context, prompt string) ([]byte, error) {
	params := openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(c.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(c.size),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	}
	if c.model == defaultImageModel {
		params.Quality = openai.ImageGenerateParamsQualityStandard
		params.Style = openai.ImageGenerateParamsStyleVivid
	}

	resp, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, classifyImageError(err)
	}
	if resp == nil || len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, apperrors.New(apperrors.KindUnknown, errclass.MsgUnknown).WithDetail("image response carried no data")
	}

	png, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, apperrors.Wrap(fmt.Errorf("decode image payload: %w", err), apperrors.KindUnknown, errclass.MsgUnknown)
	}
	return png, nil
}

// classifyImageError 优先按 API 状态码与错误码归类，其次退回文本匹配
func classifyImageError(err error) error {
	var apiErr *openai.Error
	if !stderrors.As(err, &apiErr) {
		return classifyTransport(err)
	}

	switch {
	case apiErr.Code == "content_policy_violation" || errclass.IsContentPolicyMessage(apiErr.Message):
		return apperrors.Wrap(err, apperrors.KindContentPolicyViolation, errclass.MsgContentPolicy)
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return apperrors.Wrap(err, apperrors.KindProviderRateLimited, errclass.MsgProviderRateLimited)
	case apiErr.StatusCode >= 500:
		return apperrors.Wrap(err, apperrors.KindProviderOverloaded, errclass.MsgProviderOverloaded)
	default:
		return apperrors.Wrap(err, apperrors.KindUnknown, errclass.MsgUnknown)
	}
}
