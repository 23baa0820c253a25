// Package storage defines types and methods for a work definition storage backend.
package storage

import (
	"context"

	"github.com/TincheHK/prefw/workflow"
)

type ReadStorage interface {
	// RetrieveWorkDefinition retrieves the work definition id.
	// A missing work definition is an error wrapping workflow.ErrNotFound.
	RetrieveWorkDefinition(ctx context.Context, id string) (*workflow.WorkDefinition, error)

	// RetrieveWorkDefinitionIDs returns the sorted identifiers of all
	// stored work definitions.
	RetrieveWorkDefinitionIDs(ctx context.Context) ([]string, error)
}

type Storage interface {
	ReadStorage

	// StoreWorkDefinition validates and stores w using its identifier.
	// A zero timestamp is set to the current time.
	// Storing an existing identifier replaces its definition.
	StoreWorkDefinition(ctx context.Context, w *workflow.WorkDefinition) error
}
