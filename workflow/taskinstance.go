package workflow

import (
	"context"
	"fmt"
)

// TaskInstance is one step's runtime record within a work instance.
// It refers to its owner and task definition by identifier only.
type TaskInstance struct {
	ID             string                 `json:"id"`
	WorkInstanceID string                 `json:"workInstance"`
	Order          int                    `json:"order"`
	Name           string                 `json:"name"`
	Version        string                 `json:"version"`
	Type           TaskType               `json:"type,omitempty"`
	Endpoint       string                 `json:"endpoint"`
	Settings       map[string]interface{} `json:"settings,omitempty"`
}

// Identity returns the "name@version" identity of the task definition.
func (t *TaskInstance) Identity() string {
	return TaskIdentity(t.Name, t.Version)
}

// Headless reports whether t is a headless task.
func (t *TaskInstance) Headless() bool {
	return t.Type == TaskHeadless
}

func (t *TaskInstance) clone() *TaskInstance {
	c := *t
	if t.Settings != nil {
		c.Settings = make(map[string]interface{}, len(t.Settings))
		for k, v := range t.Settings {
			c.Settings[k] = v
		}
	}
	return &c
}

// Process invokes p for x and reduces the return value to a result.
// A panicking processor is an immediate failure.
func (t *TaskInstance) Process(ctx context.Context, p Processor, x *Execution) (r Result) {
	if p == nil {
		return Result{Kind: ResultFailed, Err: AsTaskError(fmt.Errorf("%w: %s", ErrNoEndpoint, t.Endpoint))}
	}
	defer func() {
		if v := recover(); v != nil {
			r = Result{Kind: ResultFailed, Err: &TaskError{Message: fmt.Sprintf("processor panic: %v", v)}}
		}
	}()
	promise, err := p.Process(ctx, x)
	switch {
	case err != nil:
		return Result{Kind: ResultFailed, Err: AsTaskError(err)}
	case promise != nil:
		return Result{Kind: ResultPending, Promise: promise}
	}
	return Result{Kind: ResultResolved}
}
