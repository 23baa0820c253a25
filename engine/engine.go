// Package engine implements the prefw workflow engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/ident"
	"github.com/TincheHK/prefw/log/logkeys"
	"github.com/TincheHK/prefw/notify"
	"github.com/TincheHK/prefw/utils/uuid"
	"github.com/TincheHK/prefw/workflow"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WorkRetriever retrieves work definitions.
// Missing work definitions are reported with errors wrapping workflow.ErrNotFound.
type WorkRetriever interface {
	RetrieveWorkDefinition(ctx context.Context, id string) (*workflow.WorkDefinition, error)
}

// Engine instantiates work definitions and drives work instances
// through their tasks.
type Engine struct {
	tasksMu sync.RWMutex
	tasks   map[string][]*registeredTask // keyed by task name

	processorsMu sync.RWMutex
	processors   map[string]workflow.Processor // keyed by endpoint

	storage   storage.Storage
	works     WorkRetriever
	publisher notify.Publisher

	locks  *keyedLock
	logger log.Logger
	ider   uuid.IDer
	tracer trace.Tracer

	notifying     sync.WaitGroup
	notifyTimeout time.Duration
}

// DefaultNotifyTimeout bounds the delivery of one notification fan-out.
const DefaultNotifyTimeout = 30 * time.Second

// Options configure the engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDer sets the identifier generator for new instances.
func WithIDer(ider uuid.IDer) Option {
	return func(e *Engine) {
		e.ider = ider
	}
}

// WithPublisher sets the publisher for work instance change notifications.
func WithPublisher(p notify.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithNotifyTimeout bounds the delivery of each notification fan-out.
func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.notifyTimeout = d
	}
}

// New creates a new workflow engine.
func New(storage storage.Storage, works WorkRetriever, opts ...Option) *Engine {
	e := &Engine{
		tasks:      make(map[string][]*registeredTask),
		processors: make(map[string]workflow.Processor),
		storage:    storage,
		works:      works,
		locks:      newKeyedLock(),
		logger:     log.NopLogger,
		ider:       uuid.NewUUID(),
		tracer:     otel.Tracer("github.com/TincheHK/prefw/engine"),

		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is a process call on behalf of a caller.
type Request struct {
	Method string
	Caller *workflow.Caller

	// DataStore holds mutations merged into the work instance data
	// store before the processor runs. A nil value deletes a key.
	DataStore map[string]interface{}

	// Params are handed to the processor and not persisted.
	Params map[string]interface{}
}

func callerOrAnonymous(c *workflow.Caller) *workflow.Caller {
	if c == nil {
		return &workflow.Caller{}
	}
	return c
}

func validID(id, what string) error {
	if id == "" {
		return fmt.Errorf("%w: missing %s identifier", workflow.ErrNotFound, what)
	}
	if !ident.Valid(id) {
		return fmt.Errorf("%s: %w", what, ident.ErrInvalidIdentity)
	}
	return nil
}

// load retrieves and hydrates work instance id.
func (e *Engine) load(ctx context.Context, id string) (*workflow.WorkInstance, error) {
	s, err := e.storage.RetrieveWorkInstance(ctx, id)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: retrieving work instance %s: %v", workflow.ErrInternal, id, err)
	}
	wi, err := workflow.Restore(s)
	if err != nil {
		return nil, fmt.Errorf("%w: restoring work instance %s: %v", workflow.ErrInternal, id, err)
	}
	return wi, nil
}

// save stores wi and reloads it to pick up the storage assigned timestamp.
func (e *Engine) save(ctx context.Context, wi *workflow.WorkInstance) (*workflow.WorkInstance, storage.Action, error) {
	action, err := e.storage.StoreWorkInstance(ctx, wi.Snapshot())
	if err != nil {
		return nil, action, fmt.Errorf("%w: storing work instance %s: %v", workflow.ErrInternal, wi.ID(), err)
	}
	saved, err := e.load(ctx, wi.ID())
	if err != nil {
		return nil, action, fmt.Errorf("%w: reloading work instance %s: %v", workflow.ErrInternal, wi.ID(), err)
	}
	return saved, action, nil
}

// notify publishes an update of ts to groups in the background.
// Callers do not wait for delivery.
func (e *Engine) notify(ctx context.Context, logger log.Logger, groups []string, ts time.Time) {
	if e.publisher == nil || len(groups) < 1 {
		return
	}
	m := notify.NewWorkInstanceUpdate(ts)
	ctx = context.WithoutCancel(ctx)
	e.notifying.Add(1)
	go func() {
		defer e.notifying.Done()
		ctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
		defer cancel()
		ok := notify.Fanout(ctx, e.publisher, logger, groups, m)
		notifyPublishedTotal.WithLabelValues("ok").Add(float64(ok))
		if failed := len(groups) - ok; failed > 0 {
			notifyPublishedTotal.WithLabelValues("failed").Add(float64(failed))
		}
	}()
}

// Wait blocks until notifications started so far have been delivered
// or timed out.
func (e *Engine) Wait() {
	e.notifying.Wait()
}

// CreateInstance instantiates the work definition workID.
// The caller must be a member of the first task's groups unless it is
// an internal caller.
func (e *Engine) CreateInstance(ctx context.Context, workID, description string, caller *workflow.Caller) (*workflow.WorkInstance, error) {
	caller = callerOrAnonymous(caller)
	if description == "" {
		return nil, fmt.Errorf("%w: missing description", workflow.ErrValidation)
	}
	work, err := e.works.RetrieveWorkDefinition(ctx, workID)
	if errors.Is(err, workflow.ErrNotFound) {
		return nil, err
	} else if err != nil {
		return nil, fmt.Errorf("%w: retrieving work definition %s: %v", workflow.ErrInternal, workID, err)
	}
	if len(work.Tasks) < 1 {
		return nil, fmt.Errorf("%w: work %s: %v", workflow.ErrValidation, workID, workflow.ErrNoTasks)
	}

	defs := make([]*workflow.TaskDefinition, len(work.Tasks))
	for i, wt := range work.Tasks {
		if defs[i], err = e.TaskDefinition(wt.Name, wt.Version); err != nil {
			return nil, fmt.Errorf("%w: work %s: %v", workflow.ErrValidation, workID, err)
		}
	}
	if !caller.Internal && !caller.MemberOfAny(defs[0].Groups) {
		return nil, fmt.Errorf("%w: user %q may not create %s", workflow.ErrPermissionDenied, caller.User, workID)
	}

	wi, err := workflow.NewWorkInstance(e.ider, work, description, defs)
	if err != nil {
		return nil, err
	}

	logger := ctxlog.Logger(ctx, e.logger).With(
		logkeys.InstanceID, wi.ID(),
		logkeys.WorkID, workID,
	)
	saved, action, err := e.save(ctx, wi)
	if err != nil {
		logger.Info(logkeys.Message, "creating work instance", logkeys.Error, err)
		return nil, err
	}
	if action != storage.ActionInsert {
		logger.Info(logkeys.Message, "created work instance overwrote an existing one")
	}
	instancesCreatedTotal.Inc()
	logger.Debug(
		logkeys.Message, "created work instance",
		logkeys.User, caller.User,
		logkeys.TaskID, saved.NextTask(),
	)
	e.notify(ctx, logger, notify.Union(defs[0].Groups), saved.Timestamp())
	return saved, nil
}

// Instance returns work instance id if caller may view it.
// Super users may view any instance. Other callers may view Open
// instances whose next task lists one of their groups.
func (e *Engine) Instance(ctx context.Context, id string, caller *workflow.Caller) (*workflow.WorkInstance, error) {
	if err := validID(id, "work instance"); err != nil {
		return nil, err
	}
	wi, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.viewable(wi, callerOrAnonymous(caller))
}

func (e *Engine) viewable(wi *workflow.WorkInstance, caller *workflow.Caller) (*workflow.WorkInstance, error) {
	if caller.SuperUser {
		return wi, nil
	}
	t, ok := wi.NextTaskInstance()
	if wi.State() == workflow.StateOpen && ok && caller.MemberOfAny(e.taskGroups(t)) {
		return wi, nil
	}
	return nil, fmt.Errorf("%w: work instance %s", workflow.ErrNotFound, wi.ID())
}

// InstanceForTask returns the Open work instance whose next task is taskID.
// The same view permission as Instance applies.
func (e *Engine) InstanceForTask(ctx context.Context, taskID string, caller *workflow.Caller) (*workflow.WorkInstance, error) {
	if err := validID(taskID, "task instance"); err != nil {
		return nil, err
	}
	id, err := e.storage.RetrieveWorkInstanceIDByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	wi, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if wi.NextTask() != taskID {
		return nil, fmt.Errorf("%w: task instance %s is not active", workflow.ErrNotFound, taskID)
	}
	return e.viewable(wi, callerOrAnonymous(caller))
}

// Process processes the next task of work instance id.
// Callers outside the next task's groups get workflow.ErrNotFound unless
// they are super users.
//
// Calls for the same work instance are serialized in arrival order.
// If ctx is done before the task settles Process returns ctx.Err() while
// the pending task keeps the instance locked until it settles.
func (e *Engine) Process(ctx context.Context, id string, req *Request) (*workflow.WorkInstance, error) {
	return e.process(ctx, id, "", req)
}

// ProcessTask processes work instance owning task instance taskID.
// It fails with workflow.ErrNotFound if taskID is not the next task
// once the instance lock is held.
func (e *Engine) ProcessTask(ctx context.Context, taskID string, req *Request) (*workflow.WorkInstance, error) {
	if req != nil && !workflow.WriteMethod(req.Method) && !callerOrAnonymous(req.Caller).SuperUser {
		return nil, fmt.Errorf("%w: %s", workflow.ErrMethodNotAllowed, req.Method)
	}
	if err := validID(taskID, "task instance"); err != nil {
		return nil, err
	}
	id, err := e.storage.RetrieveWorkInstanceIDByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return e.process(ctx, id, taskID, req)
}

type processResult struct {
	wi  *workflow.WorkInstance
	err error
}

func (e *Engine) process(ctx context.Context, id, taskID string, req *Request) (*workflow.WorkInstance, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", workflow.ErrValidation)
	}
	caller := callerOrAnonymous(req.Caller)
	if !workflow.WriteMethod(req.Method) && !caller.SuperUser {
		return nil, fmt.Errorf("%w: %s", workflow.ErrMethodNotAllowed, req.Method)
	}
	if err := validID(id, "work instance"); err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "engine.Process", trace.WithAttributes(
		attribute.String("prefw.instance_id", id),
		attribute.String("prefw.method", req.Method),
	))
	defer span.End()

	processInFlight.Inc()
	unlock, err := e.locks.lock(ctx, id)
	if err != nil {
		processInFlight.Dec()
		return nil, err
	}

	done := make(chan processResult, 1)
	go func() {
		wi, err := e.processLocked(context.WithoutCancel(ctx), id, taskID, req, caller)
		unlock()
		processInFlight.Dec()
		done <- processResult{wi: wi, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			span.RecordError(r.err)
			span.SetStatus(codes.Error, r.err.Error())
		}
		return r.wi, r.err
	case <-ctx.Done():
		span.SetStatus(codes.Error, "abandoned by caller")
		return nil, ctx.Err()
	}
}

// processLocked runs one process step. The instance lock must be held.
func (e *Engine) processLocked(ctx context.Context, id, taskID string, req *Request, caller *workflow.Caller) (*workflow.WorkInstance, error) {
	start := time.Now()
	logger := ctxlog.Logger(ctx, e.logger).With(logkeys.InstanceID, id)
	outcome := outcomeError
	defer func() {
		processTotal.WithLabelValues(outcome).Inc()
		processDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	wi, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if wi.State() != workflow.StateOpen {
		return nil, fmt.Errorf("%w: work instance %s is closed", workflow.ErrNotFound, id)
	}
	task, ok := wi.NextTaskInstance()
	if !ok {
		return nil, fmt.Errorf("%w: work instance %s has no next task", workflow.ErrNotFound, id)
	}
	if taskID != "" && task.ID != taskID {
		return nil, fmt.Errorf("%w: task instance %s is not active", workflow.ErrNotFound, taskID)
	}
	before := e.taskGroups(task)
	// the instance is invisible to callers outside the active task's groups.
	if !caller.SuperUser && !caller.MemberOfAny(before) {
		return nil, fmt.Errorf("%w: task instance %s for user %q", workflow.ErrNotFound, task.ID, caller.User)
	}
	logger = logger.With(
		logkeys.TaskID, task.ID,
		logkeys.TaskName, task.Identity(),
	)

	if err = wi.Mutate(func(p *workflow.Permit) error {
		return p.Absorb(req.DataStore)
	}); err != nil {
		return nil, err
	}

	x, err := wi.NewExecution(caller, req.Method, req.Params)
	if err != nil {
		return nil, err
	}
	r := task.Process(ctx, e.processor(task.Endpoint), x)
	if task.Headless() {
		r = r.Deferral()
	}
	if r.Kind == workflow.ResultPending {
		logger.Debug(logkeys.Message, "awaiting task")
	}
	rejection, err := r.Await(ctx)
	if err != nil {
		return nil, err
	}

	var tr *workflow.Transition
	if err = wi.Mutate(func(p *workflow.Permit) (err error) {
		if r.Kind == workflow.ResultFailed {
			tr, err = p.Fail(r.Err)
		} else {
			tr, err = p.Settle(rejection)
		}
		return
	}); err != nil {
		return nil, err
	}
	if tr.FellBack {
		logger.Info(logkeys.Message, "active task not in task list, fell back to first task")
	}

	saved, action, err := e.save(ctx, wi)
	if err != nil {
		logger.Info(logkeys.Message, "saving work instance", logkeys.Error, err)
		return nil, err
	}
	outcome = string(tr.Outcome)

	var after []string
	if t, ok := saved.Task(tr.To); ok {
		after = e.taskGroups(t)
	}
	logger.Debug(
		logkeys.Message, "processed task",
		logkeys.Outcome, outcome,
		logkeys.User, caller.User,
		"action", action,
		"next_task", tr.To,
	)
	e.notify(ctx, logger, notify.Union(before, after), saved.Timestamp())
	return saved, nil
}

// DeleteInstance deletes work instance id and its task instances.
// Only super users may delete work instances.
func (e *Engine) DeleteInstance(ctx context.Context, id string, caller *workflow.Caller) error {
	caller = callerOrAnonymous(caller)
	if !caller.SuperUser {
		return fmt.Errorf("%w: deleting work instance", workflow.ErrPermissionDenied)
	}
	if err := validID(id, "work instance"); err != nil {
		return err
	}
	unlock, err := e.locks.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()
	if err = e.storage.DeleteWorkInstance(ctx, id); err != nil {
		return err
	}
	ctxlog.Logger(ctx, e.logger).Debug(
		logkeys.Message, "deleted work instance",
		logkeys.InstanceID, id,
		logkeys.User, caller.User,
	)
	return nil
}

// DeleteTaskInstance is not supported. Task instances only go away
// with their work instance.
func (e *Engine) DeleteTaskInstance(ctx context.Context, taskID string, caller *workflow.Caller) error {
	return fmt.Errorf("%w: deleting task instance %s", workflow.ErrUnsupported, taskID)
}
