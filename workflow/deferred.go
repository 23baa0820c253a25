package workflow

import (
	"context"
	"sync"
)

// Deferred is a one-shot completion handle.
// Only the first call to Resolve or Reject settles it.
type Deferred struct {
	once sync.Once
	done chan struct{}
	err  *TaskError
}

// NewDeferred creates a new unsettled deferred.
func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

func (d *Deferred) settle(err *TaskError) (settled bool) {
	d.once.Do(func() {
		d.err = err
		close(d.done)
		settled = true
	})
	return
}

// Resolve fulfills d. It reports whether this call settled d.
func (d *Deferred) Resolve() bool {
	return d.settle(nil)
}

// Reject rejects d with err. A nil err is replaced with a generic rejection.
// It reports whether this call settled d.
func (d *Deferred) Reject(err *TaskError) bool {
	if err == nil {
		err = &TaskError{Message: "rejected"}
	}
	return d.settle(err)
}

// Promise returns the read side of d.
func (d *Deferred) Promise() *Promise {
	return &Promise{d: d}
}

// Promise is the read side of a Deferred.
type Promise struct {
	d *Deferred
}

// Resolved returns an already fulfilled promise.
func Resolved() *Promise {
	d := NewDeferred()
	d.Resolve()
	return d.Promise()
}

// Rejected returns an already rejected promise.
func Rejected(err *TaskError) *Promise {
	d := NewDeferred()
	d.Reject(err)
	return d.Promise()
}

// Done is closed when the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.d.done
}

// Settled reports whether the promise has settled.
func (p *Promise) Settled() bool {
	select {
	case <-p.d.done:
		return true
	default:
		return false
	}
}

// Err returns the rejection reason of a settled promise.
// It is nil for fulfilled or unsettled promises.
func (p *Promise) Err() *TaskError {
	select {
	case <-p.d.done:
		return p.d.err
	default:
		return nil
	}
}

// Wait blocks until the promise settles or ctx is done.
// The first return value is the rejection reason, if any.
func (p *Promise) Wait(ctx context.Context) (*TaskError, error) {
	select {
	case <-p.d.done:
		return p.d.err, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
