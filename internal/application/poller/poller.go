// Package poller 等待刚写入的产物在读侧变得可解析（例如对象存储异步生成的下载 URL）。
package poller

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
	"vidassist-api/pkg/metrics"
	"vidassist-api/pkg/tracer"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultInterval = 1500 * time.Millisecond
)

// Config 轮询参数
type Config struct {
	// Artifact 产物名，仅用于日志与指标
	Artifact string
	Timeout  time.Duration
	Interval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Artifact == "" {
		c.Artifact = "artifact"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	return c
}

// Loader 读取当前记录，不存在时返回 (nil, nil)
type Loader[T any] func(ctx context.Context) (*T, error)

// Field 从记录中取目标字段，ok=false 表示尚未就绪
type Field[T any, V any] func(record *T) (value V, ok bool)

// WaitForField 按固定间隔重复读取，直到 field 就绪或超时
//
// 截止时间同时约束每次读取，卡住的读取不会拖过 Timeout；
// 超时只在墙钟到达截止时间之后才判定，返回 KindArtifactTimeout；
// 存储暂时不可用（KindStoreUnavailable）视为尚未收敛继续等待，其他读取错误立即返回。
func WaitForField[T any, V any](ctx context.Context, cfg Config, load Loader[T], field Field[T, V]) (V, error) {
	cfg = cfg.withDefaults()
	var zero V

	ctx, span := tracer.Start(ctx, "poller.WaitForField", trace.WithAttributes(
		attribute.String("artifact", cfg.Artifact),
		attribute.Int64("timeout_ms", cfg.Timeout.Milliseconds()),
	))
	defer span.End()

	start := time.Now()
	deadline := start.Add(cfg.Timeout)
	attempts := 0

	finish := func(status string) {
		metrics.PollerAttempts.WithLabelValues(cfg.Artifact, status).Observe(float64(attempts))
		metrics.PollerWaitDuration.WithLabelValues(cfg.Artifact).Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.Int("attempts", attempts), attribute.String("status", status))
	}

	loadCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	timedOut := func() error {
		finish("timeout")
		err := apperrors.New(apperrors.KindArtifactTimeout, "").
			WithDetail(fmt.Sprintf("%s not resolvable after %s (%d attempts)", cfg.Artifact, cfg.Timeout, attempts))
		tracer.RecordError(span, err)
		return err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		attempts++
		record, err := load(loadCtx)
		// 读取被自身截止时间打断而调用方仍有效：按超时处理
		if err != nil && ctx.Err() == nil && loadCtx.Err() != nil {
			return zero, timedOut()
		}
		switch {
		case err == nil:
			if record != nil {
				if value, ok := field(record); ok {
					finish("ok")
					return value, nil
				}
			}
		case apperrors.IsKind(err, apperrors.KindStoreUnavailable):
			logger.Warn(ctx, "artifact lookup failed, will retry",
				"artifact", cfg.Artifact,
				"attempt", attempts,
				"error", err.Error(),
			)
		default:
			finish("error")
			tracer.RecordError(span, err)
			return zero, fmt.Errorf("poll %s: %w", cfg.Artifact, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, timedOut()
		}

		wait := cfg.Interval
		if wait > remaining {
			wait = remaining
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			finish("canceled")
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
