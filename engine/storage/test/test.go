// Package test provides a conformance test for engine storage backends.
package test

import (
	"context"
	"errors"
	"testing"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/utils/uuid"
	"github.com/TincheHK/prefw/workflow"
)

func newInstance(t *testing.T) *workflow.WorkInstance {
	t.Helper()
	work := &workflow.WorkDefinition{
		ID: "test.work",
		Tasks: []workflow.WorkTask{
			{Name: "form", Settings: map[string]interface{}{"title": "Request"}},
			{Name: "hook"},
			{Name: "approve"},
		},
	}
	defs := []*workflow.TaskDefinition{
		{Name: "form", Version: "1.0.0", Endpoint: "form"},
		{Name: "hook", Version: "1.0.0", Endpoint: "webhook", Type: workflow.TaskHeadless},
		{Name: "approve", Version: "2.1.0", Endpoint: "approval"},
	}
	wi, err := workflow.NewWorkInstance(uuid.NewUUID(), work, "storage test", defs)
	if err != nil {
		t.Fatal(err)
	}
	return wi
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func settle(t *testing.T, wi *workflow.WorkInstance, data map[string]interface{}, rejection *workflow.TaskError) {
	t.Helper()
	err := wi.Mutate(func(p *workflow.Permit) error {
		if err := p.Absorb(data); err != nil {
			return err
		}
		_, err := p.Settle(rejection)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}

func store(t *testing.T, s storage.Storage, wi *workflow.WorkInstance, want storage.Action) *workflow.WorkInstance {
	t.Helper()
	ctx := context.Background()
	action, err := s.StoreWorkInstance(ctx, wi.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if have := action; have != want {
		t.Errorf("action: have: %v, want: %v", have, want)
	}
	snapshot, err := s.RetrieveWorkInstance(ctx, wi.ID())
	if err != nil {
		t.Fatal(err)
	}
	wi2, err := workflow.Restore(snapshot)
	if err != nil {
		t.Fatal(err)
	}
	if wi2.Timestamp().IsZero() {
		t.Error("expected storage to assign a timestamp")
	}
	return wi2
}

// TestEngineStorage exercises a storage backend.
// Identifiers are random so backends may be shared between runs.
func TestEngineStorage(t *testing.T, newStorage func() storage.Storage) {
	s := newStorage()
	ctx := context.Background()

	t.Run("lifecycle", func(t *testing.T) {
		testLifecycle(t, s)
	})

	t.Run("notFound", func(t *testing.T) {
		missing := uuid.NewUUID().ID()
		if _, err := s.RetrieveWorkInstance(ctx, missing); !errors.Is(err, workflow.ErrNotFound) {
			t.Errorf("retrieve: have: %v, want: %v", err, workflow.ErrNotFound)
		}
		if _, err := s.RetrieveWorkInstanceIDByTask(ctx, missing); !errors.Is(err, workflow.ErrNotFound) {
			t.Errorf("by task: have: %v, want: %v", err, workflow.ErrNotFound)
		}
		if err := s.DeleteWorkInstance(ctx, missing); !errors.Is(err, workflow.ErrNotFound) {
			t.Errorf("delete: have: %v, want: %v", err, workflow.ErrNotFound)
		}
	})

	t.Run("inconsistent", func(t *testing.T) {
		snapshot := newInstance(t).Snapshot()
		snapshot.NextTask = uuid.NewUUID().ID()
		if _, err := s.StoreWorkInstance(ctx, snapshot); !errors.Is(err, workflow.ErrInconsistent) {
			t.Errorf("have: %v, want: %v", err, workflow.ErrInconsistent)
		}
		if _, err := s.StoreWorkInstance(ctx, nil); err == nil {
			t.Error("expected error storing nil snapshot")
		}
	})

	t.Run("reopen", func(t *testing.T) {
		// a second storage handle sees the same data
		wi := newInstance(t)
		store(t, s, wi, storage.ActionInsert)
		snapshot, err := newStorage().RetrieveWorkInstance(ctx, wi.ID())
		if err != nil {
			t.Fatal(err)
		}
		if have, want := snapshot.NextTask, wi.NextTask(); have != want {
			t.Errorf("next task: have: %v, want: %v", have, want)
		}
	})
}

func testLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	wi := newInstance(t)
	tasks := wi.Tasks()

	wi2 := store(t, s, wi, storage.ActionInsert)
	if have, want := wi2.NextTask(), tasks[0].ID; have != want {
		t.Errorf("next task: have: %v, want: %v", have, want)
	}
	if have, want := wi2.Description(), "storage test"; have != want {
		t.Errorf("description: have: %v, want: %v", have, want)
	}
	if have, want := wi2.WorkID(), "test.work"; have != want {
		t.Errorf("work: have: %v, want: %v", have, want)
	}
	tasks2 := wi2.Tasks()
	if have, want := len(tasks2), len(tasks); have != want {
		t.Fatalf("tasks: have: %v, want: %v", have, want)
	}
	for i := range tasks {
		if have, want := tasks2[i].ID, tasks[i].ID; have != want {
			t.Errorf("task %d id: have: %v, want: %v", i, have, want)
		}
		if have, want := tasks2[i].Type, tasks[i].Type; have != want {
			t.Errorf("task %d type: have: %v, want: %v", i, have, want)
		}
		if have, want := tasks2[i].Identity(), tasks[i].Identity(); have != want {
			t.Errorf("task %d identity: have: %v, want: %v", i, have, want)
		}
	}
	if have, want := tasks2[0].Settings["title"], "Request"; have != want {
		t.Errorf("settings: have: %v, want: %v", have, want)
	}

	for _, task := range tasks {
		id, err := s.RetrieveWorkInstanceIDByTask(ctx, task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if have, want := id, wi.ID(); have != want {
			t.Errorf("owner: have: %v, want: %v", have, want)
		}
	}

	ids, err := s.RetrieveOpenWorkInstanceIDs(ctx, workflow.TaskHeadless)
	if err != nil {
		t.Fatal(err)
	}
	if contains(ids, wi.ID()) {
		t.Error("instance should not be waiting on a headless task")
	}
	if ids, err = s.RetrieveOpenWorkInstanceIDs(ctx, workflow.TaskTemplate); err != nil {
		t.Fatal(err)
	} else if !contains(ids, wi.ID()) {
		t.Error("instance should be waiting on a template task")
	}

	// advance onto the headless task
	settle(t, wi2, map[string]interface{}{"name": "gopher"}, nil)
	wi3 := store(t, s, wi2, storage.ActionUpdate)
	if have, want := wi3.NextTask(), tasks[1].ID; have != want {
		t.Errorf("next task: have: %v, want: %v", have, want)
	}
	if have, want := wi3.DataStore()["name"], "gopher"; have != want {
		t.Errorf("data store: have: %v, want: %v", have, want)
	}
	if ids, err = s.RetrieveOpenWorkInstanceIDs(ctx, workflow.TaskHeadless); err != nil {
		t.Fatal(err)
	} else if !contains(ids, wi.ID()) {
		t.Error("instance should be waiting on a headless task")
	}

	// reject back to the first task
	settle(t, wi3, nil, workflow.NewTaskError("bad input", 422))
	wi4 := store(t, s, wi3, storage.ActionUpdate)
	if have, want := wi4.NextTask(), tasks[0].ID; have != want {
		t.Errorf("next task: have: %v, want: %v", have, want)
	}
	if lastErr := wi4.LastError(); lastErr == nil {
		t.Error("expected last error")
	} else if have, want := *lastErr, (workflow.TaskError{Message: "bad input", Code: 422}); have != want {
		t.Errorf("last error: have: %v, want: %v", have, want)
	}

	// walk to the end
	for i := 0; i < 3; i++ {
		settle(t, wi4, nil, nil)
	}
	wi5 := store(t, s, wi4, storage.ActionUpdate)
	if have, want := wi5.State(), workflow.StateClosed; have != want {
		t.Errorf("state: have: %v, want: %v", have, want)
	}
	if wi5.NextTask() != "" {
		t.Errorf("expected no next task, have: %v", wi5.NextTask())
	}
	if wi5.LastError() != nil {
		t.Errorf("expected cleared last error, have: %v", wi5.LastError())
	}
	for _, taskType := range []workflow.TaskType{workflow.TaskTemplate, workflow.TaskHeadless} {
		if ids, err = s.RetrieveOpenWorkInstanceIDs(ctx, taskType); err != nil {
			t.Fatal(err)
		} else if contains(ids, wi.ID()) {
			t.Errorf("closed instance listed as open for %s", taskType)
		}
	}

	if err = s.DeleteWorkInstance(ctx, wi.ID()); err != nil {
		t.Fatal(err)
	}
	if _, err = s.RetrieveWorkInstance(ctx, wi.ID()); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("have: %v, want: %v", err, workflow.ErrNotFound)
	}
	if _, err = s.RetrieveWorkInstanceIDByTask(ctx, tasks[2].ID); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("have: %v, want: %v", err, workflow.ErrNotFound)
	}
}
