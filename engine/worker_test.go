package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/workflow"
	"github.com/TincheHK/prefw/workflow/test"
)

func TestWorkerRunOnce(t *testing.T) {
	headless := test.NewCollecting(&test.Resolver{Set: map[string]interface{}{"notified": "yes"}})
	e, _ := newTestEngine(t, map[string]workflow.Processor{"b": headless},
		workflow.TaskTemplate, workflow.TaskHeadless, workflow.TaskTemplate)
	w := NewWorker(e, e.storage)
	ctx := context.Background()

	wi, err := e.CreateInstance(ctx, "w", "car", sales)
	if err != nil {
		t.Fatal(err)
	}
	tasks := taskIDs(wi)

	// nothing headless yet.
	if err = w.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if have, want := len(headless.Executions()), 0; have != want {
		t.Fatalf("executions: have %v, want %v", have, want)
	}

	if _, err = e.Process(ctx, wi.ID(), post(sales)); err != nil {
		t.Fatal(err)
	}
	if err = w.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	xs := headless.Executions()
	if have, want := len(xs), 1; have != want {
		t.Fatalf("executions: have %v, want %v", have, want)
	}
	if !xs[0].Caller.Internal {
		t.Error("expected internal caller")
	}

	if wi, err = e.Instance(ctx, wi.ID(), super); err != nil {
		t.Fatal(err)
	}
	if have, want := wi.NextTask(), tasks[2]; have != want {
		t.Errorf("next task: have %v, want %v", have, want)
	}
	if have, want := wi.DataStore()["notified"], "yes"; have != want {
		t.Errorf("notified: have %v, want %v", have, want)
	}

	// template tasks are left alone.
	if err = w.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if have, want := len(headless.Executions()), 1; have != want {
		t.Errorf("executions: have %v, want %v", have, want)
	}
}

func TestWorkerRunOnceDeadline(t *testing.T) {
	manual := test.NewManual(2)
	e, _ := newTestEngine(t, map[string]workflow.Processor{"b": manual},
		workflow.TaskTemplate, workflow.TaskHeadless, workflow.TaskTemplate)
	w := NewWorker(e, e.storage)
	ctx := context.Background()

	for _, d := range []string{"boat", "plane"} {
		wi, err := e.CreateInstance(ctx, "w", d, sales)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = e.Process(ctx, wi.ID(), post(sales)); err != nil {
			t.Fatal(err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.RunOnce(runCtx) }()

	// one task settles, the other stays pending past the deadline.
	settled := <-manual.Executions()
	settled.Resolve()
	parked := <-manual.Executions()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("have %v, want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker run did not return at its deadline")
	}

	wi, err := e.Instance(ctx, settled.Task.WorkInstanceID, super)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := wi.NextTask(), wi.Tasks()[2].ID; have != want {
		t.Errorf("settled: next task: have %v, want %v", have, want)
	}
	if wi, err = e.Instance(ctx, parked.Task.WorkInstanceID, super); err != nil {
		t.Fatal(err)
	}
	if have, want := wi.NextTask(), parked.Task.ID; have != want {
		t.Errorf("parked: next task: have %v, want %v", have, want)
	}

	// the parked task completes on its own and a later run finds
	// nothing left to do.
	parked.Resolve()
	if err = w.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if wi, err = e.Instance(ctx, parked.Task.WorkInstanceID, super); err != nil {
		t.Fatal(err)
	}
	if have, want := wi.NextTask(), wi.Tasks()[2].ID; have != want {
		t.Errorf("parked: next task: have %v, want %v", have, want)
	}
}

// listedStorage lists every instance it holds as waiting on a headless
// task, whatever their next task is now.
type listedStorage struct {
	storage.ReadStorage
	snapshots map[string]*workflow.Snapshot
}

func (s *listedStorage) RetrieveWorkInstance(_ context.Context, id string) (*workflow.Snapshot, error) {
	return s.snapshots[id], nil
}

func (s *listedStorage) RetrieveOpenWorkInstanceIDs(context.Context, workflow.TaskType) ([]string, error) {
	var ids []string
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

type recordingTaskProcessor struct {
	mu    sync.Mutex
	tasks []string
}

func (p *recordingTaskProcessor) ProcessTask(_ context.Context, taskID string, _ *Request) (*workflow.WorkInstance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, taskID)
	return nil, workflow.ErrNotFound
}

func TestWorkerSkipsMovedInstances(t *testing.T) {
	tasks := []*workflow.TaskInstance{
		{ID: "t1", Type: workflow.TaskHeadless},
		{ID: "t2", Type: workflow.TaskTemplate},
	}
	s := &listedStorage{snapshots: map[string]*workflow.Snapshot{
		"headless": {ID: "headless", State: workflow.StateOpen, NextTask: "t1", Tasks: tasks},
		"template": {ID: "template", State: workflow.StateOpen, NextTask: "t2", Tasks: tasks},
		"closed":   {ID: "closed", State: workflow.StateClosed, Tasks: tasks},
	}}
	p := new(recordingTaskProcessor)
	if err := NewWorker(p, s).RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if have, want := p.tasks, []string{"t1"}; !reflect.DeepEqual(have, want) {
		t.Errorf("processed: have %v, want %v", have, want)
	}
}
