package transcript

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/domain/entity"
	apperrors "vidassist-api/pkg/errors"
)

type memTranscripts struct {
	mu      sync.Mutex
	records map[entity.ResourceKey]*entity.Transcript
}

func (m *memTranscripts) Get(_ context.Context, key entity.ResourceKey) (*entity.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[key], nil
}

func (m *memTranscripts) InsertIfAbsent(_ context.Context, key entity.ResourceKey, t *entity.Transcript) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	m.records[key] = t
	return true, nil
}

type fakeProvider struct {
	calls   atomic.Int32
	entries []entity.TranscriptEntry
	err     error
}

func (f *fakeProvider) FetchTranscript(context.Context, string) ([]entity.TranscriptEntry, error) {
	f.calls.Add(1)
	return f.entries, f.err
}

type countingUsage struct {
	n atomic.Int32
}

func (c *countingUsage) RecordUsage(context.Context, string, entity.Feature, string) error {
	c.n.Add(1)
	return nil
}

func newService(provider *fakeProvider, usage *countingUsage) *Service {
	store := &memTranscripts{records: map[entity.ResourceKey]*entity.Transcript{}}
	return NewService(store, provider, nil, usage)
}

func TestService_ReadThrough(t *testing.T) {
	provider := &fakeProvider{entries: []entity.TranscriptEntry{{Text: "hello", Timestamp: "0:01"}}}
	usage := &countingUsage{}
	svc := newService(provider, usage)
	ctx := context.Background()

	res, err := svc.Get(ctx, "U1", "V1", true)
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.Equal(t, CacheSaved, res.Cache)
	assert.Equal(t, "hello", res.Transcript[0].Text)

	res, err = svc.Get(ctx, "U1", "V1", true)
	require.NoError(t, err)
	assert.False(t, res.IsNew)
	assert.Equal(t, CacheHit, res.Cache)

	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, int32(1), usage.n.Load())
}

func TestService_NotTrackingReturnsEmpty(t *testing.T) {
	provider := &fakeProvider{entries: []entity.TranscriptEntry{{Text: "x"}}}
	usage := &countingUsage{}
	svc := newService(provider, usage)

	res, err := svc.Get(context.Background(), "U1", "V1", false)
	require.NoError(t, err)
	assert.Empty(t, res.Transcript)
	assert.NotNil(t, res.Transcript)
	assert.Equal(t, "", res.Cache)
	assert.False(t, res.IsNew)
	assert.Equal(t, int32(0), provider.calls.Load())
	assert.Equal(t, int32(0), usage.n.Load())
}

func TestService_Unavailable(t *testing.T) {
	usage := &countingUsage{}
	svc := newService(&fakeProvider{}, usage)

	_, err := svc.Get(context.Background(), "U1", "V1", true)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindResourceUnavailable))
	assert.Equal(t, int32(0), usage.n.Load())

	svc = newService(&fakeProvider{err: apperrors.New(apperrors.KindResourceUnavailable, "")}, usage)
	_, err = svc.Get(context.Background(), "U1", "V1", true)
	assert.True(t, apperrors.IsKind(err, apperrors.KindResourceUnavailable))
}
