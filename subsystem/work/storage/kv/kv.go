// Package kv implements a work definition storage backend using JSON with key-value storage.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TincheHK/prefw/utils/kv"
	"github.com/TincheHK/prefw/workflow"
)

// KV is a work definition storage backend using JSON with key-value storage.
type KV struct {
	mu sync.RWMutex
	b  kv.TraversingBucket
}

func New(b kv.TraversingBucket) *KV {
	return &KV{b: b}
}

// RetrieveWorkDefinition unmarshals the JSON stored using id and returns the work definition.
func (s *KV) RetrieveWorkDefinition(ctx context.Context, id string) (*workflow.WorkDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := new(workflow.WorkDefinition)
	err := kv.GetJSON(ctx, s.b, id, w)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: work definition %s", workflow.ErrNotFound, id)
	}
	return w, err
}

// RetrieveWorkDefinitionIDs returns the keys of the bucket.
func (s *KV) RetrieveWorkDefinitionIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return kv.KeysWithPrefix(ctx, s.b, "")
}

// StoreWorkDefinition marshals w into JSON and stores it using its identifier.
func (s *KV) StoreWorkDefinition(ctx context.Context, w *workflow.WorkDefinition) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrValidation, err)
	}
	c := *w
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC().Truncate(time.Second)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return kv.SetJSON(ctx, s.b, c.ID, &c)
}

