package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vidassist-api/pkg/errors"
)

type image struct {
	url string
}

func urlField(img *image) (string, bool) {
	return img.url, img.url != ""
}

func TestWaitForField_ConvergesAfterNilReads(t *testing.T) {
	var calls atomic.Int32
	load := func(context.Context) (*image, error) {
		if calls.Add(1) <= 3 {
			return nil, nil
		}
		return &image{url: "https://cdn.example.com/a.png"}, nil
	}

	got, err := WaitForField(context.Background(), Config{Artifact: "image", Timeout: time.Second, Interval: 10 * time.Millisecond}, load, urlField)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", got)
	assert.Equal(t, int32(4), calls.Load())
}

func TestWaitForField_FieldNotReadyYet(t *testing.T) {
	var calls atomic.Int32
	load := func(context.Context) (*image, error) {
		if calls.Add(1) < 3 {
			return &image{}, nil
		}
		return &image{url: "u"}, nil
	}

	got, err := WaitForField(context.Background(), Config{Timeout: time.Second, Interval: 5 * time.Millisecond}, load, urlField)
	require.NoError(t, err)
	assert.Equal(t, "u", got)
}

func TestWaitForField_TimeoutNeverEarly(t *testing.T) {
	load := func(context.Context) (*image, error) { return nil, nil }
	timeout := 80 * time.Millisecond

	start := time.Now()
	_, err := WaitForField(context.Background(), Config{Timeout: timeout, Interval: 30 * time.Millisecond}, load, urlField)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindArtifactTimeout))
	assert.GreaterOrEqual(t, elapsed, timeout)
}

func TestWaitForField_HardErrorReturnsImmediately(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("permission denied")
	load := func(context.Context) (*image, error) {
		calls.Add(1)
		return nil, boom
	}

	_, err := WaitForField(context.Background(), Config{Timeout: time.Second, Interval: 10 * time.Millisecond}, load, urlField)
	assert.ErrorIs(t, err, boom)
	assert.False(t, apperrors.IsKind(err, apperrors.KindArtifactTimeout))
	assert.Equal(t, int32(1), calls.Load())
}

func TestWaitForField_StoreUnavailableIsRetried(t *testing.T) {
	var calls atomic.Int32
	load := func(context.Context) (*image, error) {
		if calls.Add(1) == 1 {
			return nil, apperrors.New(apperrors.KindStoreUnavailable, "")
		}
		return &image{url: "u"}, nil
	}

	got, err := WaitForField(context.Background(), Config{Timeout: time.Second, Interval: 5 * time.Millisecond}, load, urlField)
	require.NoError(t, err)
	assert.Equal(t, "u", got)
}

func TestWaitForField_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	load := func(context.Context) (*image, error) {
		cancel()
		return nil, nil
	}

	_, err := WaitForField(ctx, Config{Timeout: time.Second, Interval: 50 * time.Millisecond}, load, urlField)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForField_BlockingLoadBoundedByTimeout(t *testing.T) {
	load := func(ctx context.Context) (*image, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(600 * time.Millisecond):
			return &image{url: "late"}, nil
		}
	}
	timeout := 100 * time.Millisecond

	start := time.Now()
	_, err := WaitForField(context.Background(), Config{Timeout: timeout, Interval: 10 * time.Millisecond}, load, urlField)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindArtifactTimeout))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestWaitForField_StoreErrorFromExpiredLoadIsTimeout(t *testing.T) {
	// 存储层把截止时间包装成不可用错误时同样按超时返回
	load := func(ctx context.Context) (*image, error) {
		<-ctx.Done()
		return nil, apperrors.Wrap(ctx.Err(), apperrors.KindStoreUnavailable, "store unavailable")
	}

	_, err := WaitForField(context.Background(), Config{Timeout: 50 * time.Millisecond, Interval: 10 * time.Millisecond}, load, urlField)
	assert.True(t, apperrors.IsKind(err, apperrors.KindArtifactTimeout))
}
