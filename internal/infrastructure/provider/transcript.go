package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/config"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/infrastructure/resilience"
	apperrors "vidassist-api/pkg/errors"
)

const transcriptProviderName = "transcript"

// unavailableMarkers 上游在没有字幕时给出的错误文本
var unavailableMarkers = []string{"transcript panel not found", "type mismatch", "transcripts disabled", "no transcript"}

// TranscriptClient 字幕提取服务客户端
// 服务接口：GET {base}/v1/transcripts/{videoId}?lang=en
// 响应：{"segments":[{"text":"...","start_ms":1234}]}
type TranscriptClient struct {
	baseURL  string
	apiKey   string
	lang     string
	client   *http.Client
	executor *resilience.Executor[[]entity.TranscriptEntry]
}

// NewTranscriptClient 创建字幕提取客户端
func NewTranscriptClient(cfg config.HTTPProviderConfig) *TranscriptClient {
	return &TranscriptClient{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		lang:     "en",
		client:   newHTTPClient(cfg.Timeout),
		executor: resilience.NewExecutor[[]entity.TranscriptEntry](resilience.FromConfig("transcript", cfg.Retry)),
	}
}

// FetchTranscript 拉取视频字幕；没有字幕时返回 KindResourceUnavailable
func (c *TranscriptClient) FetchTranscript(ctx context.Context, videoID string) ([]entity.TranscriptEntry, error) {
	entries, err := c.executor.Get(ctx, func(ctx context.Context) ([]entity.TranscriptEntry, error) {
		return c.fetchOnce(ctx, videoID)
	})
	observe(transcriptProviderName, err)
	return entries, err
}

func (c *TranscriptClient) fetchOnce(ctx context.Context, videoID string) ([]entity.TranscriptEntry, error) {
	endpoint := fmt.Sprintf("%s/v1/transcripts/%s?lang=%s", c.baseURL, url.PathEscape(videoID), url.QueryEscape(c.lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build transcript request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode == http.StatusNotFound || isTranscriptUnavailable(body) {
		return nil, transcriptUnavailable(videoID)
	}
	if resp.StatusCode >= 300 {
		return nil, classifyStatus(transcriptProviderName, resp.StatusCode, body)
	}

	entries := parseTranscript(body)
	if len(entries) == 0 {
		return nil, transcriptUnavailable(videoID)
	}
	return entries, nil
}

func parseTranscript(body []byte) []entity.TranscriptEntry {
	segments := gjson.GetBytes(body, "segments")
	entries := make([]entity.TranscriptEntry, 0, len(segments.Array()))
	segments.ForEach(func(_, seg gjson.Result) bool {
		text := strings.TrimSpace(seg.Get("text").String())
		if text == "" {
			text = "N/A"
		}
		offset := time.Duration(seg.Get("start_ms").Int()) * time.Millisecond
		entries = append(entries, entity.TranscriptEntry{
			Text:      text,
			Timestamp: entity.FormatTimestamp(offset),
		})
		return true
	})
	return entries
}

func isTranscriptUnavailable(body []byte) bool {
	msg := strings.ToLower(gjson.GetBytes(body, "error").String())
	if msg == "" {
		return false
	}
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func transcriptUnavailable(videoID string) error {
	return apperrors.New(apperrors.KindResourceUnavailable, errclass.MsgTranscriptUnavailable).
		WithDetail("no transcript for " + videoID)
}
