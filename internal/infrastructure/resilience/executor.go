// Package resilience 为上游提供方调用组合重试与熔断（failsafe-go）
package resilience

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/config"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

const (
	defaultMaxRetries = 2
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxDelay   = 5 * time.Second
)

// Policy 重试与熔断参数
type Policy struct {
	Name       string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// BreakerFailures / BreakerWindow 窗口内失败数达到阈值即熔断；BreakerWindow 为 0 时不熔断
	BreakerFailures uint
	BreakerWindow   uint
	BreakerDelay    time.Duration
}

// FromConfig 由配置生成策略，并带上默认熔断参数
func FromConfig(name string, cfg config.RetryConfig) Policy {
	return Policy{
		Name:            name,
		MaxRetries:      cfg.MaxRetries,
		BaseDelay:       cfg.BaseDelay,
		MaxDelay:        cfg.MaxDelay,
		BreakerFailures: 5,
		BreakerWindow:   10,
		BreakerDelay:    15 * time.Second,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Retryable 只有上游过载与存储连接类失败值得在本次请求内重试
// 限流与内容策略拒绝直接交给调用方。
func Retryable(err error) bool {
	switch apperrors.KindOf(err) {
	case apperrors.KindProviderOverloaded, apperrors.KindStoreUnavailable:
		return true
	}
	return false
}

// Executor 已分类错误之上的重试 + 熔断执行器
type Executor[R any] struct {
	name     string
	executor failsafe.Executor[R]
}

// NewExecutor 创建执行器；被执行函数应返回已分类的错误
func NewExecutor[R any](p Policy) *Executor[R] {
	p = p.normalized()

	retry := retrypolicy.NewBuilder[R]().
		HandleIf(func(_ R, err error) bool { return err != nil && Retryable(err) }).
		WithBackoff(p.BaseDelay, p.MaxDelay).
		WithMaxRetries(p.MaxRetries).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		Build()

	policies := []failsafe.Policy[R]{retry}
	if p.BreakerWindow > 0 {
		failures := p.BreakerFailures
		if failures == 0 || failures > p.BreakerWindow {
			failures = p.BreakerWindow
		}
		delay := p.BreakerDelay
		if delay <= 0 {
			delay = 15 * time.Second
		}
		name := p.Name
		breaker := circuitbreaker.NewBuilder[R]().
			HandleIf(func(_ R, err error) bool { return err != nil && Retryable(err) }).
			WithFailureThresholdRatio(failures, p.BreakerWindow).
			WithDelay(delay).
			WithSuccessThreshold(1).
			OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
				logger.Warn(context.Background(), "circuit breaker state change",
					"breaker", name,
					"from_state", stateName(event.OldState),
					"to_state", stateName(event.NewState),
				)
			}).
			Build()
		// 熔断在内层，每次尝试都计入统计
		policies = append(policies, breaker)
	}

	return &Executor[R]{name: p.Name, executor: failsafe.With(policies...)}
}

// Get 执行 fn；重试耗尽的过载错误改写为统一的 retries-exhausted 提示
func (e *Executor[R]) Get(ctx context.Context, fn func(ctx context.Context) (R, error)) (R, error) {
	attempts := 0
	result, err := e.executor.WithContext(ctx).Get(func() (R, error) {
		attempts++
		return fn(ctx)
	})
	if err == nil {
		return result, nil
	}

	var zero R
	if stderrors.Is(err, circuitbreaker.ErrOpen) {
		return zero, apperrors.Wrap(err, apperrors.KindProviderOverloaded, errclass.MsgProviderOverloaded).
			WithDetail("circuit open: " + e.name)
	}
	if attempts > 1 && apperrors.IsKind(err, apperrors.KindProviderOverloaded) {
		return zero, errclass.ProviderRetriesExhausted(err)
	}
	return zero, err
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.OpenState:
		return "open"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	default:
		return "closed"
	}
}
