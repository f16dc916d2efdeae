package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidassist-api/internal/application/errclass"
	apperrors "vidassist-api/pkg/errors"
)

func fastPolicy() Policy {
	return Policy{Name: "test", MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestExecutor_RetriesOverloadedThenSucceeds(t *testing.T) {
	exec := NewExecutor[string](fastPolicy())
	calls := 0

	out, err := exec.Get(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errclass.FromProvider(errors.New("model is overloaded"))
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestExecutor_ExhaustedOverloadUsesRetryMessage(t *testing.T) {
	exec := NewExecutor[string](fastPolicy())
	calls := 0

	_, err := exec.Get(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errclass.FromProvider(errors.New("503 service unavailable"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, apperrors.IsKind(err, apperrors.KindProviderOverloaded))
	assert.Equal(t, errclass.MsgProviderRetries, apperrors.AsAppError(err).Message)
}

func TestExecutor_RateLimitNotRetried(t *testing.T) {
	exec := NewExecutor[string](fastPolicy())
	calls := 0

	_, err := exec.Get(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errclass.FromProvider(errors.New("429 Too Many Requests"))
	})
	assert.Equal(t, 1, calls)
	assert.True(t, apperrors.IsKind(err, apperrors.KindProviderRateLimited))
}

func TestExecutor_BreakerOpens(t *testing.T) {
	p := fastPolicy()
	p.MaxRetries = 0
	p.BreakerFailures = 2
	p.BreakerWindow = 2
	p.BreakerDelay = time.Minute
	exec := NewExecutor[string](p)
	overloaded := func(context.Context) (string, error) {
		return "", errclass.FromProvider(errors.New("model is overloaded"))
	}

	_, _ = exec.Get(context.Background(), overloaded)
	_, _ = exec.Get(context.Background(), overloaded)

	calls := 0
	_, err := exec.Get(context.Background(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	assert.Equal(t, 0, calls, "breaker short-circuits")
	assert.True(t, apperrors.IsKind(err, apperrors.KindProviderOverloaded))
}
