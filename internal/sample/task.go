package sample

import (
	"context"
	"sync"

	"github.com/Makepad-fr/focusflow/internal/model"
)

// Task is one in-flight fetch. It finishes exactly once with either drafts
// or an error; Cancel makes it finish with context.Canceled.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	once   sync.Once
	drafts []model.Draft
	err    error
}

// Start runs src.Fetch in its own goroutine.
func Start(ctx context.Context, src Source) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer cancel()
		drafts, err := src.Fetch(ctx)
		if err == nil && ctx.Err() != nil {
			// cancelled after the fetch returned: honour the cancel
			drafts, err = nil, ctx.Err()
		}
		t.finish(drafts, err)
	}()
	return t
}

func (t *Task) finish(drafts []model.Draft, err error) {
	t.once.Do(func() {
		t.drafts, t.err = drafts, err
		close(t.done)
	})
}

// Done is closed once the result is available.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes.
func (t *Task) Wait() ([]model.Draft, error) {
	<-t.done
	return t.drafts, t.err
}

// Cancel aborts the fetch. Safe to call more than once or after completion.
func (t *Task) Cancel() { t.cancel() }
