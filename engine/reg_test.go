package engine

import (
	"errors"
	"testing"

	"github.com/TincheHK/prefw/workflow"
)

func TestTaskDefinition(t *testing.T) {
	e := New(nil, nil)
	for _, v := range []string{"1.0.0", "1.2.0", "2.0.0"} {
		if err := e.RegisterTask(&workflow.TaskDefinition{Name: "approve", Version: v, Endpoint: "approval"}); err != nil {
			t.Fatal(err)
		}
	}

	for _, tc := range []struct {
		constraint string
		want       string
		err        error
	}{
		{"", "2.0.0", nil},
		{"^1", "1.2.0", nil},
		{"~1.0", "1.0.0", nil},
		{">= 1.1, < 2", "1.2.0", nil},
		{"~3", "", workflow.ErrNotFound},
		{"not a constraint", "", workflow.ErrValidation},
	} {
		t.Run(tc.constraint, func(t *testing.T) {
			def, err := e.TaskDefinition("approve", tc.constraint)
			if !errors.Is(err, tc.err) {
				t.Fatalf("have %v, want %v", err, tc.err)
			}
			if err != nil {
				return
			}
			if have, want := def.Version, tc.want; have != want {
				t.Errorf("version: have %v, want %v", have, want)
			}
		})
	}

	if _, err := e.TaskDefinition("unknown", ""); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("have %v, want %v", err, workflow.ErrNotFound)
	}
}

func TestRegisterTask(t *testing.T) {
	e := New(nil, nil)
	def := &workflow.TaskDefinition{Name: "form", Version: "1.0.0", Groups: []string{"staff"}, Endpoint: "form"}
	if err := e.RegisterTask(def); err != nil {
		t.Fatal(err)
	}
	if err := e.RegisterTask(def); !errors.Is(err, ErrDuplicateTask) {
		t.Errorf("duplicate: have %v, want %v", err, ErrDuplicateTask)
	}
	bad := &workflow.TaskDefinition{Name: "form", Version: "latest", Endpoint: "form"}
	if err := e.RegisterTask(bad); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("version: have %v, want %v", err, workflow.ErrValidation)
	}
	if err := e.RegisterTask(&workflow.TaskDefinition{Name: "form"}); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("missing: have %v, want %v", err, workflow.ErrValidation)
	}

	// registered definitions are read-only.
	def.Groups[0] = "changed"
	have, err := e.TaskDefinition("form", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if have.Groups[0] != "staff" {
		t.Errorf("groups: have %v, want %v", have.Groups, []string{"staff"})
	}
	have.Groups[0] = "changed"
	if groups := e.taskGroups(&workflow.TaskInstance{Name: "form", Version: "1.0.0"}); groups[0] != "staff" {
		t.Errorf("groups: have %v, want %v", groups, []string{"staff"})
	}
}

func TestRegisterProcessor(t *testing.T) {
	e := New(nil, nil)
	if err := e.RegisterProcessor("", workflow.ProcessorFunc(nil)); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("have %v, want %v", err, workflow.ErrValidation)
	}
	if err := e.RegisterProcessor("x", nil); !errors.Is(err, workflow.ErrValidation) {
		t.Errorf("have %v, want %v", err, workflow.ErrValidation)
	}
	if e.processor("x") != nil {
		t.Error("expected no processor")
	}
}
