package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TincheHK/prefw/workflow"
)

func newExecution(settings map[string]interface{}) *workflow.Execution {
	task := &workflow.TaskInstance{
		ID:             "task1",
		WorkInstanceID: "wi1",
		Name:           "notify",
		Version:        "1.0.0",
		Type:           workflow.TaskHeadless,
		Settings:       settings,
	}
	ds := workflow.NewDataStore(map[string]interface{}{"item": "desk"})
	return workflow.NewExecution(task, ds, workflow.InternalCaller(), http.MethodPost, nil)
}

func wait(t *testing.T, p *workflow.Promise) *workflow.TaskError {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	te, err := p.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return te
}

func TestWebhookSuccess(t *testing.T) {
	var payload Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"dataStore":{"ticket":"T-1"}}`))
	}))
	defer srv.Close()

	x := newExecution(map[string]interface{}{"url": srv.URL})
	p, err := New().Process(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}
	if te := wait(t, p); te != nil {
		t.Fatalf("unexpected rejection: %v", te)
	}
	if payload.Task != "task1" || payload.WorkInstance != "wi1" {
		t.Errorf("payload: have %+v", payload)
	}
	if have, want := payload.DataStore["item"], "desk"; have != want {
		t.Errorf("item: have %v, want %v", have, want)
	}
	if v, _ := x.Data().Get("ticket"); v != "T-1" {
		t.Errorf("ticket: have %v, want %v", v, "T-1")
	}
}

func TestWebhookServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := New(WithURL(srv.URL)).Process(context.Background(), newExecution(nil))
	if err != nil {
		t.Fatal(err)
	}
	te := wait(t, p)
	if te == nil {
		t.Fatal("expected rejection")
	}
	if have, want := te.Code, http.StatusInternalServerError; have != want {
		t.Errorf("code: have %v, want %v", have, want)
	}
}

func TestWebhookUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p, err := New(WithURL(url)).Process(context.Background(), newExecution(nil))
	if err != nil {
		t.Fatal(err)
	}
	te := wait(t, p)
	if te == nil {
		t.Fatal("expected rejection")
	}
	if have, want := te.Code, http.StatusBadGateway; have != want {
		t.Errorf("code: have %v, want %v", have, want)
	}
}

func TestWebhookMissingURL(t *testing.T) {
	_, err := New().Process(context.Background(), newExecution(nil))
	if !errors.Is(err, ErrMissingURL) {
		t.Errorf("have %v, want %v", err, ErrMissingURL)
	}
}
