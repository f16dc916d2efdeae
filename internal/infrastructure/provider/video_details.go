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

	"vidassist-api/internal/config"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/internal/infrastructure/resilience"
	apperrors "vidassist-api/pkg/errors"
)

const videoDetailsProviderName = "video_details"

// YouTubeClient YouTube Data API v3 的视频元信息客户端
type YouTubeClient struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	executor *resilience.Executor[*entity.VideoDetails]
}

// NewYouTubeClient 创建视频元信息客户端
func NewYouTubeClient(cfg config.HTTPProviderConfig) *YouTubeClient {
	return &YouTubeClient{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		client:   newHTTPClient(cfg.Timeout),
		executor: resilience.NewExecutor[*entity.VideoDetails](resilience.FromConfig("video-details", cfg.Retry)),
	}
}

// GetVideoDetails 查询标题、频道、统计数据与封面
func (c *YouTubeClient) GetVideoDetails(ctx context.Context, videoID string) (*entity.VideoDetails, error) {
	details, err := c.executor.Get(ctx, func(ctx context.Context) (*entity.VideoDetails, error) {
		return c.fetchOnce(ctx, videoID)
	})
	observe(videoDetailsProviderName, err)
	return details, err
}

func (c *YouTubeClient) fetchOnce(ctx context.Context, videoID string) (*entity.VideoDetails, error) {
	q := url.Values{}
	q.Set("part", "snippet,statistics")
	q.Set("id", videoID)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build video details request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode >= 300 {
		return nil, classifyStatus(videoDetailsProviderName, resp.StatusCode, body)
	}

	item := gjson.GetBytes(body, "items.0")
	if !item.Exists() {
		return nil, apperrors.New(apperrors.KindResourceUnavailable, "Video not found").WithDetail("video " + videoID)
	}
	return parseVideoDetails(videoID, item), nil
}

func parseVideoDetails(videoID string, item gjson.Result) *entity.VideoDetails {
	snippet := item.Get("snippet")
	stats := item.Get("statistics")

	title := snippet.Get("title").String()
	if title == "" {
		title = "Unknown Title"
	}
	channel := snippet.Get("channelTitle").String()
	if channel == "" {
		channel = "Unknown Channel"
	}

	var thumbnail string
	for _, size := range []string{"maxres", "high", "default"} {
		if u := snippet.Get("thumbnails." + size + ".url").String(); u != "" {
			thumbnail = u
			break
		}
	}

	published, err := time.Parse(time.RFC3339, snippet.Get("publishedAt").String())
	if err != nil {
		published = time.Time{}
	}

	return &entity.VideoDetails{
		VideoID:      videoID,
		Title:        title,
		ChannelTitle: channel,
		ChannelID:    snippet.Get("channelId").String(),
		Description:  snippet.Get("description").String(),
		ThumbnailURL: thumbnail,
		Views:        stats.Get("viewCount").Int(),
		Likes:        stats.Get("likeCount").Int(),
		PublishedAt:  published,
	}
}
