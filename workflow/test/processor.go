// Package test provides task processors for testing.
package test

import (
	"context"
	"sync"

	"github.com/TincheHK/prefw/workflow"
)

// Resolver is a processor that succeeds immediately.
// Set is merged into the data store before returning.
type Resolver struct {
	Set map[string]interface{}
}

func (r *Resolver) Process(_ context.Context, x *workflow.Execution) (*workflow.Promise, error) {
	for k, v := range r.Set {
		x.Data().Set(k, v)
	}
	return nil, nil
}

// Failer is a processor that fails immediately with its error.
type Failer struct {
	Message string
	Code    int
}

func (f *Failer) Process(_ context.Context, _ *workflow.Execution) (*workflow.Promise, error) {
	return nil, workflow.NewTaskError(f.Message, f.Code)
}

// Rejecter is a processor that returns a pending promise which is
// rejected from another goroutine.
type Rejecter struct {
	Message string
	Code    int
}

func (r *Rejecter) Process(_ context.Context, x *workflow.Execution) (*workflow.Promise, error) {
	go x.Reject(r.Message, r.Code)
	return x.Promise(), nil
}

// Manual is a processor that leaves every execution pending.
// Executions are delivered on the channel returned by Executions.
type Manual struct {
	ch chan *workflow.Execution
}

// NewManual creates a new manual processor buffering up to n executions.
func NewManual(n int) *Manual {
	return &Manual{ch: make(chan *workflow.Execution, n)}
}

func (m *Manual) Process(_ context.Context, x *workflow.Execution) (*workflow.Promise, error) {
	m.ch <- x
	return x.Promise(), nil
}

// Executions returns the channel of pending executions.
func (m *Manual) Executions() <-chan *workflow.Execution {
	return m.ch
}

// Collecting is a processor that records executions before handing
// them to next.
type Collecting struct {
	next workflow.Processor
	mu   sync.RWMutex
	xs   []*workflow.Execution
}

// NewCollecting creates a new collecting processor.
func NewCollecting(next workflow.Processor) *Collecting {
	return &Collecting{next: next}
}

func (c *Collecting) Process(ctx context.Context, x *workflow.Execution) (*workflow.Promise, error) {
	c.mu.Lock()
	c.xs = append(c.xs, x)
	c.mu.Unlock()
	return c.next.Process(ctx, x)
}

// Executions returns the executions seen so far.
func (c *Collecting) Executions() []*workflow.Execution {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*workflow.Execution(nil), c.xs...)
}
