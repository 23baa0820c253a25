package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/TincheHK/prefw/subsystem/work/storage/inmem"
	"github.com/TincheHK/prefw/workflow"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/log"
)

func TestHandlers(t *testing.T) {
	store := inmem.New()
	mux := flow.New()
	HandleAPIv1("/v1", mux, log.NopLogger, store)

	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := serve("GET", "/v1/work")
	if have, want := rec.Code, http.StatusOK; have != want {
		t.Fatalf("list empty: have %v, want %v", have, want)
	}
	if have, want := rec.Body.String(), "[]\n"; have != want {
		t.Errorf("list empty: have %q, want %q", have, want)
	}
	if have, want := serve("GET", "/v1/work/onboard").Code, http.StatusNotFound; have != want {
		t.Errorf("get missing: have %v, want %v", have, want)
	}

	err := store.StoreWorkDefinition(context.Background(), &workflow.WorkDefinition{
		ID:    "onboard",
		Tasks: []workflow.WorkTask{{Name: "form"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec = serve("GET", "/v1/work/onboard")
	if have, want := rec.Code, http.StatusOK; have != want {
		t.Fatalf("get: have %v, want %v", have, want)
	}
	work := new(workflow.WorkDefinition)
	if err := json.NewDecoder(rec.Body).Decode(work); err != nil {
		t.Fatal(err)
	}
	if have, want := work.ID, "onboard"; have != want {
		t.Errorf("id: have %v, want %v", have, want)
	}
	if have, want := work.Tasks, []workflow.WorkTask{{Name: "form"}}; !reflect.DeepEqual(have, want) {
		t.Errorf("tasks: have %v, want %v", have, want)
	}

	rec = serve("GET", "/v1/work")
	var ids []string
	if err := json.NewDecoder(rec.Body).Decode(&ids); err != nil {
		t.Fatal(err)
	}
	if have, want := ids, []string{"onboard"}; !reflect.DeepEqual(have, want) {
		t.Errorf("ids: have %v, want %v", have, want)
	}

	// definitions are not editable over HTTP.
	for _, method := range []string{"PUT", "DELETE"} {
		if have, want := serve(method, "/v1/work/onboard").Code, http.StatusMethodNotAllowed; have != want {
			t.Errorf("%s: have %v, want %v", method, have, want)
		}
	}
}
