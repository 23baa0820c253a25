package workflow

import "context"

// Processor is the business logic bound to a task definition endpoint.
//
// Process has three result shapes:
//   - nil, nil: immediate success.
//   - nil, error: immediate failure. A *TaskError keeps its code.
//   - promise, nil: pending. The step is decided when the promise settles.
//
// Processors that finish asynchronously usually return x.Promise() and
// later call x.Resolve or x.Reject from another goroutine.
// Processors must only mutate the instance data store through x.Data().
type Processor interface {
	Process(ctx context.Context, x *Execution) (*Promise, error)
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(ctx context.Context, x *Execution) (*Promise, error)

// Process calls f(ctx, x).
func (f ProcessorFunc) Process(ctx context.Context, x *Execution) (*Promise, error) {
	return f(ctx, x)
}

// Execution is a single invocation of a processor for a task instance.
type Execution struct {
	Task   *TaskInstance
	Caller *Caller
	Method string

	// Params are request parameters handed to the processor.
	// They are not persisted.
	Params map[string]interface{}

	data     *DataStore
	deferred *Deferred
}

// NewExecution creates a new execution of task against the data store ds.
func NewExecution(task *TaskInstance, ds *DataStore, caller *Caller, method string, params map[string]interface{}) *Execution {
	if ds == nil {
		ds = NewDataStore(nil)
	}
	return &Execution{
		Task:     task,
		Caller:   caller,
		Method:   method,
		Params:   params,
		data:     ds,
		deferred: NewDeferred(),
	}
}

// Data returns the work instance data store.
func (x *Execution) Data() *DataStore {
	return x.data
}

// Resolve fulfills the execution promise.
func (x *Execution) Resolve() bool {
	return x.deferred.Resolve()
}

// Reject rejects the execution promise with message and code.
func (x *Execution) Reject(message string, code int) bool {
	return x.deferred.Reject(NewTaskError(message, code))
}

// Promise returns the execution promise.
func (x *Execution) Promise() *Promise {
	return x.deferred.Promise()
}

// ResultKind is the settlement shape of a processor invocation.
type ResultKind int

const (
	ResultResolved ResultKind = iota
	ResultFailed
	ResultPending
)

func (k ResultKind) String() string {
	switch k {
	case ResultResolved:
		return "resolved"
	case ResultFailed:
		return "failed"
	case ResultPending:
		return "pending"
	}
	return "unknown"
}

// Result is the reduced outcome of a processor invocation.
// Err is set for ResultFailed and Promise for ResultPending.
type Result struct {
	Kind    ResultKind
	Err     *TaskError
	Promise *Promise
}

// Deferral converts a failed result into a pending one holding an
// already rejected promise. Other results are returned unchanged.
func (r Result) Deferral() Result {
	if r.Kind != ResultFailed {
		return r
	}
	return Result{Kind: ResultPending, Promise: Rejected(r.Err)}
}

// Await blocks until r is decided and returns the rejection reason, if any.
func (r Result) Await(ctx context.Context) (*TaskError, error) {
	switch r.Kind {
	case ResultFailed:
		return r.Err, nil
	case ResultPending:
		return r.Promise.Wait(ctx)
	}
	return nil, nil
}
