package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vidassist-api/pkg/logger"
)

// Trace OpenTelemetry 追踪中间件
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 把 trace_id / span_id 写入 gin 与日志上下文，
// 请求结束后把用户、视频与对话分流补到 span 上
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		sc := span.SpanContext()
		if !sc.IsValid() {
			c.Next()
			return
		}

		traceID, spanID := sc.TraceID().String(), sc.SpanID().String()
		c.Set("trace_id", traceID)
		c.Set("span_id", spanID)
		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(logger.WithContext(ctx, logger.SpanIDKey, spanID))
		c.Header("X-Trace-ID", traceID)

		c.Next()

		attrs := make([]attribute.KeyValue, 0, 3)
		if owner := OwnerIDFromGin(c); owner != "" {
			attrs = append(attrs, attribute.String("vidassist.owner_id", owner))
		}
		if video := c.Writer.Header().Get(VideoIDHeader); video != "" {
			attrs = append(attrs, attribute.String("vidassist.video_id", video))
		}
		if flow := c.Writer.Header().Get(ChatFlowHeader); flow != "" {
			attrs = append(attrs, attribute.String("vidassist.chat_flow", flow))
		}
		if len(attrs) > 0 {
			span.SetAttributes(attrs...)
		}
	}
}
