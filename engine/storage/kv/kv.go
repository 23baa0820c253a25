// Package kv implements a workflow engine storage backend using a key-value interface.
package kv

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/utils/kv"
	"github.com/TincheHK/prefw/workflow"
)

// KV is a workflow engine storage backend using a key-value interface.
type KV struct {
	mu            sync.RWMutex
	instanceStore kv.TraversingBucket
	taskStore     kv.Bucket // task instance ID to work instance ID index
}

// New creates a new key-value workflow engine storage backend.
func New(instanceStore kv.TraversingBucket, taskStore kv.Bucket) *KV {
	return &KV{
		instanceStore: instanceStore,
		taskStore:     taskStore,
	}
}

// RetrieveWorkInstance implements the storage interface method.
func (s *KV) RetrieveWorkInstance(ctx context.Context, id string) (*workflow.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return kvGetInstance(ctx, s.instanceStore, id)
}

// RetrieveWorkInstanceIDByTask implements the storage interface method.
func (s *KV) RetrieveWorkInstanceIDByTask(ctx context.Context, taskID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, err := s.taskStore.Get(ctx, taskID)
	if err != nil {
		return "", notFound(err, "task instance", taskID)
	}
	return string(id), nil
}

// RetrieveOpenWorkInstanceIDs implements the storage interface method.
func (s *KV) RetrieveOpenWorkInstanceIDs(ctx context.Context, taskType workflow.TaskType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, err := kvInstanceIDs(ctx, s.instanceStore)
	if err != nil {
		return nil, err
	}
	var ret []string
	for _, id := range ids {
		meta, err := kvGetInstanceMeta(ctx, s.instanceStore, id)
		if err != nil {
			return nil, fmt.Errorf("reading meta for %s: %w", id, err)
		}
		if meta.State != workflow.StateOpen {
			continue
		}
		tasks, err := kvGetInstanceTasks(ctx, s.instanceStore, id)
		if err != nil {
			return nil, fmt.Errorf("reading tasks for %s: %w", id, err)
		}
		for _, t := range tasks {
			if t.ID == meta.NextTask && t.Type == taskType {
				ret = append(ret, id)
				break
			}
		}
	}
	sort.Strings(ret)
	return ret, nil
}

// StoreWorkInstance implements the storage interface method.
func (s *KV) StoreWorkInstance(ctx context.Context, snapshot *workflow.Snapshot) (storage.Action, error) {
	snapshot, err := storage.Prepare(snapshot, time.Now())
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	action := storage.ActionInsert
	if ok, err := s.instanceStore.Has(ctx, snapshot.ID+keySfxInstanceMeta); err != nil {
		return "", fmt.Errorf("checking instance exists: %w", err)
	} else if ok {
		action = storage.ActionUpdate
	}
	for _, t := range snapshot.Tasks {
		if err = s.taskStore.Set(ctx, t.ID, []byte(snapshot.ID)); err != nil {
			return "", fmt.Errorf("indexing task %s: %w", t.ID, err)
		}
	}
	if err = kvSetInstance(ctx, s.instanceStore, snapshot); err != nil {
		return "", fmt.Errorf("setting instance: %w", err)
	}
	return action, nil
}

// DeleteWorkInstance implements the storage interface method.
func (s *KV) DeleteWorkInstance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := kvGetInstanceTasks(ctx, s.instanceStore, id)
	if err != nil {
		return err
	}
	taskIDs := make([]string, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}
	if err = kv.DeleteSlice(ctx, s.taskStore, taskIDs); err != nil {
		return fmt.Errorf("deleting task index: %w", err)
	}
	return kvDeleteInstance(ctx, s.instanceStore, id)
}
