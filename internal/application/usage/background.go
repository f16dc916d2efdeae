package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vidassist-api/pkg/logger"
	"vidassist-api/pkg/metrics"
)

// TaskError 后台任务失败
type TaskError struct {
	Task string
	Err  error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("background task %s: %v", e.Task, e.Err)
}

// Background 尽力而为的后台任务执行器
// 任务与请求生命周期解绑；失败进入错误通道，由单独的协程记录日志，永远不回传给调用方。
type Background struct {
	errs    chan TaskError
	onError func(TaskError)
	timeout time.Duration

	wg       sync.WaitGroup
	drained  chan struct{}
	closeMu  sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// BackgroundOption 可选配置
type BackgroundOption func(*Background)

// WithTaskTimeout 单个任务的超时
func WithTaskTimeout(d time.Duration) BackgroundOption {
	return func(b *Background) { b.timeout = d }
}

// WithErrorHandler 覆盖默认的日志处理
func WithErrorHandler(fn func(TaskError)) BackgroundOption {
	return func(b *Background) { b.onError = fn }
}

// NewBackground 创建执行器并启动错误消费协程
func NewBackground(buffer int, opts ...BackgroundOption) *Background {
	if buffer <= 0 {
		buffer = 64
	}
	b := &Background{
		errs:    make(chan TaskError, buffer),
		timeout: 30 * time.Second,
		drained: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.onError == nil {
		b.onError = func(te TaskError) {
			logger.Warn(context.Background(), "background task failed", "task", te.Task, "error", te.Err.Error())
		}
	}
	go b.drain()
	return b
}

func (b *Background) drain() {
	defer close(b.drained)
	for te := range b.errs {
		metrics.BackgroundTaskErrors.WithLabelValues(te.Task).Inc()
		b.onError(te)
	}
}

// Go 启动一个后台任务；执行器关闭后提交的任务被丢弃
func (b *Background) Go(ctx context.Context, task string, fn func(ctx context.Context) error) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		logger.Warn(ctx, "background runner closed, task dropped", "task", task)
		return
	}

	b.wg.Add(1)
	detached := context.WithoutCancel(ctx)
	go func() {
		defer b.wg.Done()
		taskCtx, cancel := context.WithTimeout(detached, b.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				b.report(TaskError{Task: task, Err: fmt.Errorf("panic: %v", r)})
			}
		}()
		if err := fn(taskCtx); err != nil {
			b.report(TaskError{Task: task, Err: err})
		}
	}()
}

// report 非阻塞写入错误通道，满了就直接记日志
func (b *Background) report(te TaskError) {
	select {
	case b.errs <- te:
	default:
		logger.Warn(context.Background(), "background error channel full", "task", te.Task, "error", te.Err.Error())
	}
}

// Close 等待在途任务结束并停止错误消费
func (b *Background) Close(ctx context.Context) error {
	b.closeMu.Lock()
	b.closed = true
	b.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.stopOnce.Do(func() { close(b.errs) })
	<-b.drained
	return nil
}
