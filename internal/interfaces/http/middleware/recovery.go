package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/interfaces/http/dto"
	"vidassist-api/pkg/logger"
)

// Recovery Panic 恢复中间件；响应只带通用文案，堆栈只进日志
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err := fmt.Errorf("panic: %v", rec)
			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered", err,
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.RecordError(err)
				span.SetStatus(codes.Error, "panic")
			}
			if c.Writer.Written() {
				// 流式响应已开始，只能中断
				c.Abort()
				return
			}
			dto.AbortClassified(c, errclass.Observe(err))
		}()

		c.Next()
	}
}
