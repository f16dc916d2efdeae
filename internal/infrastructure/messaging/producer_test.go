package messaging

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/application/chat"
	"vidassist-api/internal/domain/entity"
)

func setupProducer(t *testing.T) (*Producer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewProducer(rdb, 100), rdb
}

func readOne(t *testing.T, rdb *redis.Client, stream Stream) map[string]any {
	t.Helper()
	entries, err := rdb.XRange(context.Background(), string(stream), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0].Values
}

func TestProducer_PublishUsage(t *testing.T) {
	p, rdb := setupProducer(t)

	err := p.PublishUsage(context.Background(), &entity.UsageEvent{
		OwnerID:    "U1",
		Feature:    entity.FeatureAnalyseVideo,
		ResourceID: "V1",
	})
	require.NoError(t, err)

	values := readOne(t, rdb, StreamUsageEvents)
	assert.Equal(t, "usage", values["type"])
	assert.Equal(t, "U1", values["owner_id"])
	assert.Equal(t, "V1", values["resource_id"])
	assert.Equal(t, "analyse-video", values["attr.feature"])
	assert.NotEmpty(t, values["id"])

	event, err := Decode[entity.UsageEvent](values)
	require.NoError(t, err)
	assert.Equal(t, entity.FeatureAnalyseVideo, event.Feature)
}

func TestProducer_RecordFinalMessage(t *testing.T) {
	p, rdb := setupProducer(t)

	err := p.RecordFinalMessage(context.Background(), &chat.FinalMessage{
		OwnerID:    "U1",
		ResourceID: "V1",
		Flow:       chat.FlowTranscript,
		Content:    "## Transcript",
		Outcome:    "ok",
	})
	require.NoError(t, err)

	values := readOne(t, rdb, StreamChatMessages)
	assert.Equal(t, "chat_final", values["type"])
	assert.Equal(t, "transcript", values["attr.flow"])
	_, hasSession := values["attr.session_id"]
	assert.False(t, hasSession, "empty attributes are not written")

	final, err := Decode[chat.FinalMessage](values)
	require.NoError(t, err)
	assert.Equal(t, "## Transcript", final.Content)
}

func TestProducer_PublishFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	err := NewProducer(rdb, 0).PublishUsage(context.Background(), &entity.UsageEvent{OwnerID: "U1"})
	assert.Error(t, err)
}

func TestDecode_MissingPayload(t *testing.T) {
	_, err := Decode[entity.UsageEvent](map[string]any{"type": "usage"})
	assert.Error(t, err)
}
