package handler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"vidassist-api/internal/interfaces/http/middleware"
)

// 视频 ID 只允许 URL 安全字符；"/" 被产物资源 ID 用作分隔符
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// requestResourceID 按优先级解析请求携带的资源 ID：
// 请求体 > X-Video-ID 头 > videoId 查询参数 > Referer 中的 /video/{id}
func requestResourceID(c *gin.Context, fromBody string) string {
	candidates := []string{
		fromBody,
		c.GetHeader(middleware.VideoIDHeader),
		c.Query("videoId"),
		refererVideoID(c.GetHeader("Referer")),
	}
	for _, id := range candidates {
		if id = strings.TrimSpace(id); id != "" && validVideoID(id) {
			return id
		}
	}
	return ""
}

func refererVideoID(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "video" {
			return segments[i+1]
		}
	}
	return ""
}
