package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vidassist-api/internal/application/chat"
	"vidassist-api/internal/domain/entity"
	"vidassist-api/pkg/metrics"
)

const defaultMaxLen = 100000

var tracer = otel.Tracer("messaging")

// Producer 把用量事件与对话终稿写入 Redis Streams
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer maxLen 为流的近似长度上限
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 写入一条事件，返回 stream entry ID
func (p *Producer) Publish(ctx context.Context, stream Stream, env *Envelope) (string, error) {
	ctx, span := tracer.Start(ctx, "messaging.Publish", trace.WithAttributes(
		attribute.String("messaging.stream", string(stream)),
		attribute.String("messaging.event_type", env.Type),
	))
	defer span.End()

	// 消费方据此把事件挂回原请求的 trace
	if sc := span.SpanContext(); sc.IsValid() {
		env.With("trace_id", sc.TraceID().String())
	}

	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: env.Values(),
	}).Result()
	if err != nil {
		metrics.RedisStreamPublished.WithLabelValues(string(stream), "error").Inc()
		span.RecordError(err)
		return "", fmt.Errorf("publish %s to %s: %w", env.Type, stream, err)
	}
	metrics.RedisStreamPublished.WithLabelValues(string(stream), "ok").Inc()
	return entryID, nil
}

// PublishUsage 发布计量事件，实现 quota.UsagePublisher
func (p *Producer) PublishUsage(ctx context.Context, event *entity.UsageEvent) error {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	env, err := NewEnvelope(id, "usage", event.OwnerID, event)
	if err != nil {
		return err
	}
	env.ResourceID = event.ResourceID
	env.With("feature", string(event.Feature))

	_, err = p.Publish(ctx, StreamUsageEvents, env)
	return err
}

// RecordFinalMessage 发布一轮对话的完整回复，实现 chat.FinalMessageSink
func (p *Producer) RecordFinalMessage(ctx context.Context, final *chat.FinalMessage) error {
	env, err := NewEnvelope(uuid.NewString(), "chat_final", final.OwnerID, final)
	if err != nil {
		return err
	}
	env.ResourceID = final.ResourceID
	env.With("flow", string(final.Flow)).
		With("outcome", final.Outcome).
		With("session_id", final.SessionID)

	_, err = p.Publish(ctx, StreamChatMessages, env)
	return err
}
