package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTaskInstanceProcess(t *testing.T) {
	ctx := context.Background()
	task := &TaskInstance{ID: hexID(1), Endpoint: "e"}

	for _, test := range []struct {
		name string
		p    Processor
		kind ResultKind
		code int
	}{
		{
			"resolved",
			ProcessorFunc(func(context.Context, *Execution) (*Promise, error) { return nil, nil }),
			ResultResolved, 0,
		},
		{
			"failed",
			ProcessorFunc(func(context.Context, *Execution) (*Promise, error) {
				return nil, fmt.Errorf("wrapped: %w", NewTaskError("bad", 400))
			}),
			ResultFailed, 400,
		},
		{
			"failed plain error",
			ProcessorFunc(func(context.Context, *Execution) (*Promise, error) { return nil, errors.New("plain") }),
			ResultFailed, 0,
		},
		{
			"error wins over promise",
			ProcessorFunc(func(_ context.Context, x *Execution) (*Promise, error) { return x.Promise(), errors.New("e") }),
			ResultFailed, 0,
		},
		{
			"pending",
			ProcessorFunc(func(_ context.Context, x *Execution) (*Promise, error) { return x.Promise(), nil }),
			ResultPending, 0,
		},
		{
			"panic",
			ProcessorFunc(func(context.Context, *Execution) (*Promise, error) { panic("boom") }),
			ResultFailed, 0,
		},
		{"no processor", nil, ResultFailed, 0},
	} {
		t.Run(test.name, func(t *testing.T) {
			x := NewExecution(task, nil, nil, "POST", nil)
			r := task.Process(ctx, test.p, x)
			if have, want := r.Kind, test.kind; have != want {
				t.Fatalf("kind: have: %v, want: %v", have, want)
			}
			if r.Kind == ResultFailed {
				if r.Err == nil {
					t.Fatal("expected error")
				}
				if have, want := r.Err.Code, test.code; have != want {
					t.Errorf("code: have: %v, want: %v", have, want)
				}
			}
			if r.Kind == ResultPending && r.Promise == nil {
				t.Error("expected promise")
			}
		})
	}
}

func TestResultDeferral(t *testing.T) {
	r := Result{Kind: ResultFailed, Err: NewTaskError("sync", 3)}.Deferral()
	if have, want := r.Kind, ResultPending; have != want {
		t.Fatalf("kind: have: %v, want: %v", have, want)
	}
	err, ctxErr := r.Await(context.Background())
	if ctxErr != nil {
		t.Fatal(ctxErr)
	}
	if have, want := err.Code, 3; have != want {
		t.Errorf("code: have: %v, want: %v", have, want)
	}

	r = Result{Kind: ResultResolved}.Deferral()
	if have, want := r.Kind, ResultResolved; have != want {
		t.Errorf("kind: have: %v, want: %v", have, want)
	}
}

func TestExecutionData(t *testing.T) {
	wi := newTestInstance(t, 1)
	x, err := wi.NewExecution(&Caller{User: "u"}, "POST", nil)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := x.Task.ID, hexID(1); have != want {
		t.Errorf("task: have: %v, want: %v", have, want)
	}
	x.Data().Set("written", true)
	if have, want := wi.DataStore()["written"], true; have != want {
		t.Errorf("data: have: %v, want: %v", have, want)
	}
}

func TestCallerMemberOfAny(t *testing.T) {
	c := &Caller{Groups: []string{"a", "b"}}
	if !c.MemberOfAny([]string{"x", "b"}) {
		t.Error("expected membership")
	}
	if c.MemberOfAny([]string{"x"}) {
		t.Error("unexpected membership")
	}
	var nilCaller *Caller
	if nilCaller.MemberOfAny([]string{"a"}) {
		t.Error("nil caller is a member of nothing")
	}
}
