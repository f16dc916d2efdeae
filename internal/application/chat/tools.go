package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"vidassist-api/internal/application/artifact"
	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/application/transcript"
	"vidassist-api/internal/domain/entity"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
	"vidassist-api/pkg/metrics"
)

const (
	toolNameFetchTranscript = "fetchTranscript"
	toolNameGenerateTitle   = "generateTitle"
	toolNameGenerateImage   = "generateImage"
)

const (
	msgTranscriptToolFailed = "The transcript could not be fetched right now. Please try again later."
	msgTitleDisabled        = "Title generation is not enabled yet. Ask the creator to upgrade their plan."
	msgImageDisabled        = "Image generation is not enabled, the user must upgrade."
	msgTitleDefaultPrompt   = "No custom tone detected, so a balanced SEO title was generated automatically."
	msgImageDefaultPrompt   = "No custom prompt detected, so a default thumbnail prompt was used."
)

// TranscriptFetcher 字幕服务
type TranscriptFetcher interface {
	Get(ctx context.Context, ownerID, videoID string, shouldProcess bool) (*transcript.Result, error)
}

// TitleGenerator 标题服务
type TitleGenerator interface {
	Generate(ctx context.Context, req artifact.TitleRequest) (*entity.Title, error)
}

// ImageGenerator 缩略图服务
type ImageGenerator interface {
	Generate(ctx context.Context, req artifact.ImageRequest) (*entity.Image, error)
}

// turnScope 工具共享的本轮上下文
type turnScope struct {
	ownerID string
	videoID string
	details *entity.VideoDetails
}

func toolJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"` + errclass.MsgUnknown + `"}`
	}
	return string(b)
}

func observeTool(ctx context.Context, name string, err error) {
	status := "ok"
	if err != nil {
		status = string(apperrors.KindOf(err))
		logger.Warn(ctx, "tool failed", "tool", name, "error", err.Error())
	}
	metrics.ToolCallTotal.WithLabelValues(name, status).Inc()
}

// fetchTranscriptTool 获取视频字幕（真正未命中时计费）
type fetchTranscriptTool struct {
	scope   turnScope
	fetcher TranscriptFetcher
}

func (t *fetchTranscriptTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: toolNameFetchTranscript,
		Desc: "Fetches the transcript of the current video in concise segments.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"videoId": {
				Type: schema.String,
				Desc: "Optional override for the video ID. When omitted, the video in context is used.",
			},
		}),
	}, nil
}

func (t *fetchTranscriptTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		VideoID string `json:"videoId"`
	}
	_ = json.Unmarshal([]byte(argumentsInJSON), &args)

	videoID := strings.TrimSpace(args.VideoID)
	if videoID == "" {
		videoID = t.scope.videoID
	}

	res, err := t.fetcher.Get(ctx, t.scope.ownerID, videoID, true)
	observeTool(ctx, toolNameFetchTranscript, err)
	if err != nil {
		msg := msgTranscriptToolFailed
		if apperrors.IsKind(err, apperrors.KindResourceUnavailable) {
			msg = errclass.MsgTranscriptUnavailable
		}
		return toolJSON(map[string]any{
			"videoId":    videoID,
			"cache":      msg,
			"transcript": []entity.TranscriptEntry{},
			"error":      msg,
		}), nil
	}
	return toolJSON(map[string]any{
		"videoId":    videoID,
		"cache":      res.Cache,
		"transcript": res.Transcript,
		"error":      nil,
	}), nil
}

// generateTitleTool 生成标题
type generateTitleTool struct {
	scope  turnScope
	titles TitleGenerator
}

func (t *generateTitleTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: toolNameGenerateTitle,
		Desc: "Generates a title for the current video. Provide the tone or angle you want in the prompt.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"prompt": {
				Type: schema.String,
				Desc: "Tone, style, or specific angle for the title (e.g. 'make it funny').",
			},
		}),
	}, nil
}

func (t *generateTitleTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		Prompt string `json:"prompt"`
	}
	_ = json.Unmarshal([]byte(argumentsInJSON), &args)
	prompt := strings.TrimSpace(args.Prompt)

	title, err := t.titles.Generate(ctx, artifact.TitleRequest{
		OwnerID:      t.scope.ownerID,
		VideoID:      t.scope.videoID,
		Instructions: prompt,
		Details:      t.scope.details,
	})
	observeTool(ctx, toolNameGenerateTitle, err)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindFeatureDisabled) {
			return toolJSON(map[string]any{"error": msgTitleDisabled, "upgradeRequired": true}), nil
		}
		return toolJSON(map[string]any{"error": errclass.Classify(err).UserMessage}), nil
	}

	out := map[string]any{"title": title.Title, "id": title.ID}
	if prompt == "" {
		out["message"] = msgTitleDefaultPrompt
	}
	return toolJSON(out), nil
}

// generateImageTool 生成缩略图
type generateImageTool struct {
	scope  turnScope
	images ImageGenerator
}

func (t *generateImageTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: toolNameGenerateImage,
		Desc: "Generates a thumbnail for the current video. Provide a detailed prompt for a custom style.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"prompt": {
				Type: schema.String,
				Desc: "Detailed description of the thumbnail. If omitted, a default prompt based on the video is used.",
			},
		}),
	}, nil
}

func (t *generateImageTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		Prompt string `json:"prompt"`
	}
	_ = json.Unmarshal([]byte(argumentsInJSON), &args)
	prompt := strings.TrimSpace(args.Prompt)

	img, err := t.images.Generate(ctx, artifact.ImageRequest{
		OwnerID: t.scope.ownerID,
		VideoID: t.scope.videoID,
		Prompt:  prompt,
		Details: t.scope.details,
	})
	observeTool(ctx, toolNameGenerateImage, err)

	switch {
	case err == nil:
	case apperrors.IsKind(err, apperrors.KindFeatureDisabled):
		return toolJSON(map[string]any{"error": msgImageDisabled, "upgradeRequired": true}), nil
	case apperrors.IsKind(err, apperrors.KindArtifactTimeout) && img != nil:
		return toolJSON(map[string]any{"image": imagePayload(img), "message": errclass.MsgArtifactTimeout}), nil
	default:
		return toolJSON(map[string]any{"error": errclass.Classify(err).UserMessage}), nil
	}

	out := map[string]any{"image": imagePayload(img)}
	if prompt == "" {
		out["message"] = msgImageDefaultPrompt
	}
	return toolJSON(out), nil
}

func imagePayload(img *entity.Image) map[string]any {
	p := map[string]any{"id": img.ID, "storageRef": img.StorageRef}
	if img.URL != nil {
		p["imageUrl"] = *img.URL
	}
	return p
}
