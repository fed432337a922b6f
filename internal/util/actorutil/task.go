package actorutil

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

var ErrNilTaskResult = errors.New("result is nil")

// SafeBackgroundTask wraps a blocking call so its outcome always reaches an
// actor as a message, either the value, a recovered value or an error.
type SafeBackgroundTask[T any] struct {
	ctx       actor.Context
	fn        func() (*T, error)
	timeout   *time.Duration
	onError   func(error)
	recover   func(error) T
	onSuccess func(T)
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask[T]) OnError(fn func(error)) *SafeBackgroundTask[T] {
	t.onError = fn
	return t
}

func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

func (t *SafeBackgroundTask[T]) OnSuccess(fn func(T)) *SafeBackgroundTask[T] {
	t.onSuccess = fn
	return t
}

// PipeTo runs the task on the calling goroutine and sends the result to pid.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	t.onSuccess = func(value T) {
		t.ctx.Send(pid, value)
	}
	t.Run()
}

// GoPipeTo runs the task on its own goroutine and sends the result to pid
// through the actor system root, leaving the calling actor free to serve
// its mailbox.
func (t *SafeBackgroundTask[T]) GoPipeTo(pid *actor.PID) {
	root := t.ctx.ActorSystem().Root
	t.onSuccess = func(value T) {
		root.Send(pid, value)
	}
	go t.Run()
}

func (t *SafeBackgroundTask[T]) Run() {
	task := io.Map(io.Eval(t.fn), func(a *T) T {
		if a == nil {
			panic(ErrNilTaskResult)
		}
		return *a
	})
	if t.timeout != nil {
		task = io.WithTimeout[T](*t.timeout)(task)
	}

	value, ok := t.settle(io.RunSync(task))
	if ok && t.onSuccess != nil {
		t.onSuccess(value)
	}
}

// settle turns a task result into the value handed to onSuccess. It reports
// false when the error was consumed by onError.
func (t *SafeBackgroundTask[T]) settle(result io.GoResult[T]) (T, bool) {
	if result.Error == nil {
		return result.Value, true
	}
	switch {
	case t.recover != nil:
		return t.recover(result.Error), true
	case t.onError != nil:
		t.onError(result.Error)
		return result.Value, false
	default:
		return result.Value, true
	}
}

func MapBackgroundTask[T, T2 any](bgt *SafeBackgroundTask[T], mapFn func(*T) *T2) *SafeBackgroundTask[T2] {
	return &SafeBackgroundTask[T2]{
		ctx: bgt.ctx,
		fn: func() (*T2, error) {
			r, err := bgt.fn()
			if err != nil {
				return nil, err
			}
			return mapFn(r), nil
		},
	}
}
