// Package storage defines types and primitives for workflow engine storage backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/TincheHK/prefw/workflow"
)

// ErrNilSnapshot is returned when storing a nil work instance snapshot.
var ErrNilSnapshot = errors.New("nil work instance snapshot")

// Action reports what a store operation did.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
)

// ReadStorage retrieves work instances.
// Missing work instances or task instances are reported with errors
// wrapping workflow.ErrNotFound.
type ReadStorage interface {
	// RetrieveWorkInstance retrieves the snapshot of work instance id.
	RetrieveWorkInstance(ctx context.Context, id string) (*workflow.Snapshot, error)

	// RetrieveWorkInstanceIDByTask retrieves the identifier of the work
	// instance owning the task instance taskID.
	RetrieveWorkInstanceIDByTask(ctx context.Context, taskID string) (string, error)

	// RetrieveOpenWorkInstanceIDs retrieves the identifiers of Open work
	// instances whose next task is of type taskType.
	RetrieveOpenWorkInstanceIDs(ctx context.Context, taskType workflow.TaskType) ([]string, error)
}

// Storage is the persistence collaborator of the workflow engine.
type Storage interface {
	ReadStorage

	// StoreWorkInstance inserts or updates a work instance and its task
	// instances. A zero timestamp is assigned the current time.
	StoreWorkInstance(ctx context.Context, s *workflow.Snapshot) (Action, error)

	// DeleteWorkInstance deletes a work instance and all of its task instances.
	DeleteWorkInstance(ctx context.Context, id string) error
}

// Prepare validates s and returns a copy of it for storing.
// A zero timestamp is set to now.
func Prepare(s *workflow.Snapshot, now time.Time) (*workflow.Snapshot, error) {
	if s == nil {
		return nil, ErrNilSnapshot
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	c := *s
	if c.Timestamp.IsZero() {
		c.Timestamp = now.UTC().Truncate(time.Second)
	}
	return &c, nil
}
