package test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/TincheHK/prefw/subsystem/work/storage"
	"github.com/TincheHK/prefw/workflow"
)

func TestWorkStorage(t *testing.T, newStorage func() storage.Storage) {
	s := newStorage()
	ctx := context.Background()

	work := &workflow.WorkDefinition{
		ID:   "test-purchase",
		Name: "Purchase",
		Tasks: []workflow.WorkTask{
			{Name: "form", Version: "^1", Settings: map[string]interface{}{"required": []interface{}{"item"}}},
			{Name: "approval"},
		},
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := s.StoreWorkDefinition(ctx, &workflow.WorkDefinition{ID: "empty"}); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("have %v, want %v", err, workflow.ErrValidation)
	}

	if err := s.StoreWorkDefinition(ctx, work); err != nil {
		t.Fatal(err)
	}

	have, err := s.RetrieveWorkDefinition(ctx, "test-purchase")
	if err != nil {
		t.Fatal(err)
	}
	if !have.Timestamp.Equal(work.Timestamp) {
		t.Errorf("timestamp: have %v, want %v", have.Timestamp, work.Timestamp)
	}
	have.Timestamp = work.Timestamp
	if !reflect.DeepEqual(have, work) {
		t.Errorf("have %+v, want %+v", have, work)
	}

	ids, err := s.RetrieveWorkDefinitionIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, id := range ids {
		if id == "test-purchase" {
			found = true
		}
	}
	if !found {
		t.Errorf("ids: %v missing test-purchase", ids)
	}

	if _, err = s.RetrieveWorkDefinition(ctx, "test-missing"); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("have %v, want %v", err, workflow.ErrNotFound)
	}

	// storing again replaces the definition.
	work.Tasks = work.Tasks[:1]
	if err = s.StoreWorkDefinition(ctx, work); err != nil {
		t.Fatal(err)
	}
	if have, err = s.RetrieveWorkDefinition(ctx, "test-purchase"); err != nil {
		t.Fatal(err)
	}
	if n := len(have.Tasks); n != 1 {
		t.Errorf("tasks: have %v, want 1", n)
	}
}
