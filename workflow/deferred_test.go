package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestDeferredOnce(t *testing.T) {
	d := NewDeferred()
	p := d.Promise()

	if p.Settled() {
		t.Fatal("new deferred should not be settled")
	}
	if !d.Reject(NewTaskError("first", 1)) {
		t.Error("first settlement should report true")
	}
	if d.Resolve() {
		t.Error("second settlement should report false")
	}
	if d.Reject(NewTaskError("second", 2)) {
		t.Error("third settlement should report false")
	}

	err, ctxErr := p.Wait(context.Background())
	if ctxErr != nil {
		t.Fatal(ctxErr)
	}
	if have, want := err.Message, "first"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
}

func TestDeferredRejectNil(t *testing.T) {
	p := Rejected(nil)
	if p.Err() == nil {
		t.Error("expected generic rejection")
	}
	if err := Resolved().Err(); err != nil {
		t.Errorf("expected fulfilled promise, have: %v", err)
	}
}

func TestPromiseWaitCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDeferred().Promise().Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("have: %v, want: %v", err, context.Canceled)
	}
}

func TestPromiseAsync(t *testing.T) {
	d := NewDeferred()
	go d.Resolve()
	<-d.Promise().Done()
	if err := d.Promise().Err(); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}
