package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/application/transcript"
	"vidassist-api/internal/domain/entity"
	apperrors "vidassist-api/pkg/errors"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestFetchTranscriptTool(t *testing.T) {
	fetcher := &fakeTranscripts{res: &transcript.Result{
		Transcript: []entity.TranscriptEntry{{Text: "hello", Timestamp: "0:00"}},
		Cache:      transcript.CacheHit,
	}}
	tl := &fetchTranscriptTool{scope: turnScope{ownerID: "U1", videoID: "V1"}, fetcher: fetcher}

	info, err := tl.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, toolNameFetchTranscript, info.Name)

	out := invoke(t, tl, "")
	assert.Equal(t, "V1", out["videoId"])
	assert.Equal(t, transcript.CacheHit, out["cache"])
	assert.Nil(t, out["error"])

	fetcher.err = apperrors.New(apperrors.KindResourceUnavailable, "")
	out = invoke(t, tl, `{"videoId":"V9"}`)
	assert.Equal(t, "V9", out["videoId"])
	assert.Equal(t, errclass.MsgTranscriptUnavailable, out["error"])

	fetcher.err = errors.New("pq: connection refused")
	out = invoke(t, tl, `{}`)
	assert.Equal(t, msgTranscriptToolFailed, out["error"])
	assert.NotContains(t, out["error"], "pq:")
}

func TestGenerateTitleTool_ErrorsAreFriendly(t *testing.T) {
	titles := &fakeTitles{err: apperrors.New(apperrors.KindFeatureDisabled, "")}
	tl := &generateTitleTool{scope: turnScope{ownerID: "U1", videoID: "V1"}, titles: titles}

	out := invoke(t, tl, `{}`)
	assert.Equal(t, msgTitleDisabled, out["error"])
	assert.Equal(t, true, out["upgradeRequired"])

	titles.err = apperrors.New(apperrors.KindQuotaExceeded, "")
	out = invoke(t, tl, `{}`)
	assert.Equal(t, errclass.MsgQuotaExceeded, out["error"])

	titles.err = nil
	out = invoke(t, tl, `not json`)
	assert.Equal(t, "Why Go Wins", out["title"])
	assert.Equal(t, msgTitleDefaultPrompt, out["message"])
}

func invoke(t *testing.T, tl tool.InvokableTool, args string) map[string]any {
	t.Helper()
	out, err := tl.InvokableRun(context.Background(), args)
	require.NoError(t, err)
	return decode(t, out)
}
