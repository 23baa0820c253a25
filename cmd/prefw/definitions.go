package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/TincheHK/prefw/log/logkeys"
	storagework "github.com/TincheHK/prefw/subsystem/work/storage"
	"github.com/TincheHK/prefw/workflow"

	"github.com/micromdm/nanolib/log"
)

// definitions is the JSON document of task and work definitions
// loaded at startup.
type definitions struct {
	Tasks []*workflow.TaskDefinition `json:"tasks"`
	Works []*workflow.WorkDefinition `json:"works"`
}

type taskRegisterer interface {
	RegisterTask(def *workflow.TaskDefinition) error
}

func readDefinitions(path string) (*definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defs := new(definitions)
	if err = json.NewDecoder(f).Decode(defs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return defs, nil
}

// loadDefinitions registers the task definitions with r and stores the
// work definitions in store. Work definitions are not resolved against
// tasks here; that happens when they are instantiated.
func loadDefinitions(ctx context.Context, defs *definitions, r taskRegisterer, store storagework.Storage, logger log.Logger) error {
	for _, def := range defs.Tasks {
		if err := r.RegisterTask(def); err != nil {
			return fmt.Errorf("registering task: %w", err)
		}
	}
	for _, work := range defs.Works {
		if work == nil {
			continue
		}
		if err := store.StoreWorkDefinition(ctx, work); err != nil {
			return fmt.Errorf("storing work %s: %w", work.ID, err)
		}
	}
	logger.Debug(
		logkeys.Message, "loaded definitions",
		"tasks", len(defs.Tasks),
		"works", len(defs.Works),
	)
	return nil
}
