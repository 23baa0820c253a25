package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TincheHK/prefw/engine"
	"github.com/TincheHK/prefw/notify"
	"github.com/TincheHK/prefw/processor/form"
	"github.com/TincheHK/prefw/workflow"

	"github.com/micromdm/nanolib/log"
	"github.com/redis/go-redis/v9"
)

func noRedis(t *testing.T) func(string) redis.UniversalClient {
	return func(string) redis.UniversalClient {
		t.Fatal("unexpected redis client")
		return nil
	}
}

func TestParseStorage(t *testing.T) {
	for _, name := range []string{"inmem", "file", "diskv"} {
		s, err := parseStorage(name, t.TempDir(), noRedis(t))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if s.engine == nil || s.work == nil {
			t.Errorf("%s: missing storage", name)
		}
	}
	if _, err := parseStorage("floppy", "", noRedis(t)); err == nil {
		t.Error("expected error")
	}
}

func TestParsePublishers(t *testing.T) {
	cfg := &publisherConfig{newRedis: noRedis(t)}

	pub, _, err := parsePublishers("", cfg, log.NopLogger)
	if err != nil || pub != nil {
		t.Errorf("empty: have %v, %v", pub, err)
	}

	pub, _, err = parsePublishers("log", cfg, log.NopLogger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pub.(*notify.LogPublisher); !ok {
		t.Errorf("have %T, want *notify.LogPublisher", pub)
	}

	if _, _, err = parsePublishers("log,bayeux", cfg, log.NopLogger); err == nil {
		t.Error("expected missing url error")
	}

	cfg.bayeuxURL = "http://localhost:8000/faye"
	pub, _, err = parsePublishers("log, bayeux", cfg, log.NopLogger)
	if err != nil {
		t.Fatal(err)
	}
	if multi, ok := pub.(notify.Multi); !ok || len(multi) != 2 {
		t.Errorf("have %T, want notify.Multi of 2", pub)
	}

	if _, _, err = parsePublishers("pigeon", cfg, log.NopLogger); err == nil {
		t.Error("expected unknown publisher error")
	}
}

const testDefinitions = `{
  "tasks": [
    {"name": "request", "version": "1.0.0", "groups": ["staff"], "endpoint": "form"},
    {"name": "request", "version": "1.1.0", "groups": ["staff"], "endpoint": "form"},
    {"name": "approve", "version": "1.0.0", "groups": ["managers"], "endpoint": "approval"}
  ],
  "works": [
    {"id": "purchase", "name": "Purchase", "tasks": [{"name": "request", "version": "~1.0"}, {"name": "approve"}]}
  ]
}`

func TestLoadDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "definitions.json")
	if err := os.WriteFile(path, []byte(testDefinitions), 0644); err != nil {
		t.Fatal(err)
	}
	defs, err := readDefinitions(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	s, err := parseStorage("inmem", "", noRedis(t))
	if err != nil {
		t.Fatal(err)
	}
	e := engine.New(s.engine, s.work)
	if err = registerProcessors(e, "", log.NopLogger); err != nil {
		t.Fatal(err)
	}
	if err = loadDefinitions(ctx, defs, e, s.work, log.NopLogger); err != nil {
		t.Fatal(err)
	}

	wi, err := e.CreateInstance(ctx, "purchase", "laptop", &workflow.Caller{User: "sam", Groups: []string{"staff"}})
	if err != nil {
		t.Fatal(err)
	}
	first, _ := wi.NextTaskInstance()
	if have, want := first.Version, "1.0.0"; have != want {
		t.Errorf("version: have %v, want %v", have, want)
	}
	if have, want := first.Endpoint, form.Endpoint; have != want {
		t.Errorf("endpoint: have %v, want %v", have, want)
	}

	// registering twice fails.
	if err = loadDefinitions(ctx, defs, e, s.work, log.NopLogger); !errors.Is(err, engine.ErrDuplicateTask) {
		t.Errorf("have %v, want %v", err, engine.ErrDuplicateTask)
	}
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := initTracer(context.Background(), "prefw-test", "")
	if err != nil {
		t.Fatal(err)
	}
	shutdown()
}

// parkedStorage lists one Open work instance waiting on task "t1".
type parkedStorage struct{}

func (parkedStorage) RetrieveWorkInstance(_ context.Context, id string) (*workflow.Snapshot, error) {
	return &workflow.Snapshot{
		ID:       id,
		State:    workflow.StateOpen,
		NextTask: "t1",
		Tasks:    []*workflow.TaskInstance{{ID: "t1", Type: workflow.TaskHeadless}},
	}, nil
}

func (parkedStorage) RetrieveWorkInstanceIDByTask(context.Context, string) (string, error) {
	return "i1", nil
}

func (parkedStorage) RetrieveOpenWorkInstanceIDs(context.Context, workflow.TaskType) ([]string, error) {
	return []string{"i1"}, nil
}

// neverSettles blocks until ctx is done.
type neverSettles struct{}

func (neverSettles) ProcessTask(ctx context.Context, _ string, _ *engine.Request) (*workflow.WorkInstance, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunWorkerDeadline(t *testing.T) {
	w := engine.NewWorker(neverSettles{}, parkedStorage{})
	done := make(chan error, 1)
	go func() { done <- runWorker(context.Background(), 20*time.Millisecond, w) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("have %v, want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker run did not return at its deadline")
	}
}
