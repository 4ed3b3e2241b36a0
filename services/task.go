package services

import (
	"context"
	"sync"
)

// Task is a cancellable background loop. Every timer the checkout starts is
// owned by exactly one Task, and every exit path calls Cancel.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startTask(parent context.Context, run func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		run(ctx)
	}()
	return t
}

// Cancel stops the task. It is safe to call more than once and from inside
// the task's own callbacks; it does not wait.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(t.cancel)
}

// Wait blocks until the task goroutine has returned. Never call it from a
// callback running on the task itself.
func (t *Task) Wait() {
	if t == nil {
		return
	}
	<-t.done
}

// Done is closed once the task goroutine has returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Running reports whether the task goroutine is still alive.
func (t *Task) Running() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
