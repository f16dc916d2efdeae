package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/domain/entity"
	apperrors "vidassist-api/pkg/errors"
)

// memStore 内存版 ResourceStore，InsertIfAbsent 在锁内完成检查与写入
type memStore[T any] struct {
	mu      sync.Mutex
	records map[entity.ResourceKey]*T
	getErr  error
	// beforeInsert 在插入前调用，用于制造竞争
	beforeInsert func()
}

func newMemStore[T any]() *memStore[T] {
	return &memStore[T]{records: map[entity.ResourceKey]*T{}}
}

func (s *memStore[T]) Get(_ context.Context, key entity.ResourceKey) (*T, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key], nil
}

func (s *memStore[T]) InsertIfAbsent(_ context.Context, key entity.ResourceKey, record *T) (bool, error) {
	if s.beforeInsert != nil {
		s.beforeInsert()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = record
	return true, nil
}

type usageCall struct {
	ownerID    string
	feature    entity.Feature
	resourceID string
}

type fakeUsage struct {
	mu    sync.Mutex
	calls []usageCall
	err   error
}

func (f *fakeUsage) RecordUsage(_ context.Context, ownerID string, feature entity.Feature, resourceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, usageCall{ownerID, feature, resourceID})
	return f.err
}

func (f *fakeUsage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLimits struct {
	allowed bool
	err     error
	checks  atomic.Int32
}

func (f *fakeLimits) CheckLimit(context.Context, string, entity.Feature) (bool, error) {
	f.checks.Add(1)
	return f.allowed, f.err
}

func videoBuilder(_ context.Context, key entity.ResourceKey) (*entity.Video, error) {
	return &entity.Video{OwnerID: key.OwnerID, VideoID: key.ResourceID}, nil
}

func TestGate_ScenarioU1V1(t *testing.T) {
	store := newMemStore[entity.Video]()
	usage := &fakeUsage{}
	gate := NewGate[entity.Video](entity.FeatureAnalyseVideo, store, &fakeLimits{allowed: true}, usage, videoBuilder)
	ctx := context.Background()
	key := entity.NewResourceKey("U1", "V1")

	// 首次创建前的刷新不创建、不计费
	rec, created, err := gate.GetOrCreate(ctx, key, false)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.False(t, created)
	assert.Equal(t, 0, usage.count())

	rec, created, err = gate.GetOrCreate(ctx, key, true)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, created)
	assert.Equal(t, 1, usage.count())
	assert.Equal(t, usageCall{"U1", entity.FeatureAnalyseVideo, "V1"}, usage.calls[0])

	again, created, err := gate.GetOrCreate(ctx, key, false)
	require.NoError(t, err)
	assert.Same(t, rec, again)
	assert.False(t, created)
	assert.Equal(t, 1, usage.count())
}

func TestGate_ConcurrentCreatesBillOnce(t *testing.T) {
	store := newMemStore[entity.Video]()
	usage := &fakeUsage{}
	gate := NewGate[entity.Video](entity.FeatureAnalyseVideo, store, nil, usage, videoBuilder)

	const n = 32
	var createdCount atomic.Int32
	var start sync.WaitGroup
	start.Add(1)
	var wg sync.WaitGroup
	results := make([]*entity.Video, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			rec, created, err := gate.GetOrCreate(context.Background(), entity.NewResourceKey("U1", "V1"), true)
			assert.NoError(t, err)
			results[i] = rec
			if created {
				createdCount.Add(1)
			}
		}(i)
	}
	start.Done()
	wg.Wait()

	assert.Equal(t, int32(1), createdCount.Load())
	assert.Equal(t, 1, usage.count())
	for _, rec := range results {
		assert.Same(t, results[0], rec)
	}
}

func TestGate_LostRaceReturnsWinner(t *testing.T) {
	store := newMemStore[entity.Video]()
	usage := &fakeUsage{}
	key := entity.NewResourceKey("U1", "V1")
	winner := &entity.Video{ID: "winner", OwnerID: "U1", VideoID: "V1"}
	store.beforeInsert = func() {
		store.mu.Lock()
		store.records[key] = winner
		store.mu.Unlock()
	}
	gate := NewGate[entity.Video](entity.FeatureAnalyseVideo, store, nil, usage, videoBuilder)

	rec, created, err := gate.GetOrCreate(context.Background(), key, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, winner, rec)
	assert.Equal(t, 0, usage.count())
}

func TestGate_QuotaExceeded(t *testing.T) {
	store := newMemStore[entity.Video]()
	usage := &fakeUsage{}
	limits := &fakeLimits{allowed: false}
	gate := NewGate[entity.Video](entity.FeatureAnalyseVideo, store, limits, usage, videoBuilder)
	key := entity.NewResourceKey("U1", "V1")

	_, created, err := gate.GetOrCreate(context.Background(), key, true)
	require.Error(t, err)
	assert.False(t, created)
	assert.True(t, apperrors.IsKind(err, apperrors.KindQuotaExceeded))
	assert.Equal(t, 0, usage.count())

	rec, _ := store.Get(context.Background(), key)
	assert.Nil(t, rec)
}

func TestGate_LimitNotCheckedOnHit(t *testing.T) {
	store := newMemStore[entity.Video]()
	key := entity.NewResourceKey("U1", "V1")
	store.records[key] = &entity.Video{OwnerID: "U1", VideoID: "V1"}
	limits := &fakeLimits{allowed: false}
	gate := NewGate[entity.Video](entity.FeatureAnalyseVideo, store, limits, &fakeUsage{}, videoBuilder)

	rec, created, err := gate.GetOrCreate(context.Background(), key, true)
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.False(t, created)
	assert.Equal(t, int32(0), limits.checks.Load())
}

func TestGate_UsageFailureIsSwallowed(t *testing.T) {
	store := newMemStore[entity.Video]()
	usage := &fakeUsage{err: errors.New("metering timeout")}
	gate := NewGate[entity.Video](entity.FeatureAnalyseVideo, store, nil, usage, videoBuilder)

	rec, created, err := gate.GetOrCreate(context.Background(), entity.NewResourceKey("U1", "V1"), true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, rec)
	assert.Equal(t, 1, usage.count())
}

func TestGate_BuilderErrorDoesNotInsertOrBill(t *testing.T) {
	store := newMemStore[entity.Transcript]()
	usage := &fakeUsage{}
	unavailable := apperrors.New(apperrors.KindResourceUnavailable, "")
	gate := NewGate[entity.Transcript](entity.FeatureTranscription, store, nil, usage,
		func(context.Context, entity.ResourceKey) (*entity.Transcript, error) { return nil, unavailable })

	_, created, err := gate.GetOrCreate(context.Background(), entity.NewResourceKey("U1", "V1"), true)
	assert.ErrorIs(t, err, unavailable)
	assert.False(t, created)
	assert.Empty(t, store.records)
	assert.Equal(t, 0, usage.count())
}

func TestGate_CancelledAfterBuildStillCompletes(t *testing.T) {
	store := newMemStore[entity.Video]()
	usage := &fakeUsage{}
	ctx, cancel := context.WithCancel(context.Background())
	gate := NewGate[entity.Video](entity.FeatureAnalyseVideo, store, nil, usage,
		func(ctx context.Context, key entity.ResourceKey) (*entity.Video, error) {
			cancel()
			return videoBuilder(ctx, key)
		})

	_, created, err := gate.GetOrCreate(ctx, entity.NewResourceKey("U1", "V1"), true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, store.records, 1)
	assert.Equal(t, 1, usage.count())
}

func TestGate_InvalidKeyAndStoreError(t *testing.T) {
	store := newMemStore[entity.Video]()
	gate := NewGate[entity.Video](entity.FeatureAnalyseVideo, store, nil, nil, videoBuilder)

	_, _, err := gate.GetOrCreate(context.Background(), entity.NewResourceKey("", "V1"), true)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))

	store.getErr = apperrors.New(apperrors.KindStoreUnavailable, "")
	_, _, err = gate.GetOrCreate(context.Background(), entity.NewResourceKey("U1", "V1"), true)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStoreUnavailable))
}
