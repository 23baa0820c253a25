package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TincheHK/prefw/utils/kv"
	"github.com/TincheHK/prefw/workflow"
)

const (
	// instance bucket
	keySfxInstanceMeta  = ".meta"  // marshalled instance metadata
	keySfxInstanceData  = ".data"  // marshalled data store
	keySfxInstanceTasks = ".tasks" // marshalled task instances
)

var keySfxInstanceKeys = []string{
	keySfxInstanceMeta, // should always exist
	keySfxInstanceData,
	keySfxInstanceTasks, // should always exist
}

// instanceMeta is the stored form of the scalar work instance fields.
type instanceMeta struct {
	WorkID      string              `json:"work"`
	Description string              `json:"description"`
	State       workflow.State      `json:"state"`
	NextTask    string              `json:"next_task,omitempty"`
	LastError   *workflow.TaskError `json:"last_error,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// notFound converts missing keys into workflow not found errors.
func notFound(err error, what, id string) error {
	if errors.Is(err, kv.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s %s", workflow.ErrNotFound, what, id)
	}
	return err
}

// kvSetInstance writes the snapshot s to b.
func kvSetInstance(ctx context.Context, b kv.Bucket, s *workflow.Snapshot) error {
	meta, err := json.Marshal(&instanceMeta{
		WorkID:      s.WorkID,
		Description: s.Description,
		State:       s.State,
		NextTask:    s.NextTask,
		LastError:   s.LastError,
		Timestamp:   s.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	data, err := json.Marshal(s.DataStore)
	if err != nil {
		return fmt.Errorf("marshal data store: %w", err)
	}
	tasks, err := json.Marshal(s.Tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err = kv.SetMap(ctx, b, map[string][]byte{
		s.ID + keySfxInstanceData:  data,
		s.ID + keySfxInstanceTasks: tasks,
	}); err != nil {
		return err
	}
	// meta is the existence marker of the instance so it is written last
	return b.Set(ctx, s.ID+keySfxInstanceMeta, meta)
}

// kvGetInstanceMeta reads the metadata of instance id from b.
func kvGetInstanceMeta(ctx context.Context, b kv.Bucket, id string) (*instanceMeta, error) {
	meta := new(instanceMeta)
	if err := kv.GetJSON(ctx, b, id+keySfxInstanceMeta, meta); err != nil {
		return nil, notFound(err, "work instance", id)
	}
	return meta, nil
}

// kvGetInstanceTasks reads the task instances of instance id from b.
func kvGetInstanceTasks(ctx context.Context, b kv.Bucket, id string) ([]*workflow.TaskInstance, error) {
	var tasks []*workflow.TaskInstance
	if err := kv.GetJSON(ctx, b, id+keySfxInstanceTasks, &tasks); err != nil {
		return nil, notFound(err, "work instance", id)
	}
	return tasks, nil
}

// kvGetInstance reads the snapshot of instance id from b.
func kvGetInstance(ctx context.Context, b kv.Bucket, id string) (*workflow.Snapshot, error) {
	meta, err := kvGetInstanceMeta(ctx, b, id)
	if err != nil {
		return nil, err
	}
	s := &workflow.Snapshot{
		ID:          id,
		WorkID:      meta.WorkID,
		Description: meta.Description,
		State:       meta.State,
		NextTask:    meta.NextTask,
		LastError:   meta.LastError,
		Timestamp:   meta.Timestamp,
	}
	if s.Tasks, err = kvGetInstanceTasks(ctx, b, id); err != nil {
		return nil, err
	}
	if ok, err := b.Has(ctx, id+keySfxInstanceData); err != nil {
		return nil, err
	} else if ok {
		if err = kv.GetJSON(ctx, b, id+keySfxInstanceData, &s.DataStore); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// kvDeleteInstance deletes all keys of instance id from b.
func kvDeleteInstance(ctx context.Context, b kv.Bucket, id string) error {
	keys := make([]string, len(keySfxInstanceKeys))
	for i, sfx := range keySfxInstanceKeys {
		keys[i] = id + sfx
	}
	return kv.DeleteSlice(ctx, b, keys)
}

// kvInstanceIDs returns the identifiers of all instances in b.
func kvInstanceIDs(ctx context.Context, b kv.TraversingBucket) ([]string, error) {
	var ids []string
	cancel := make(chan struct{})
	defer close(cancel)
	for k := range b.Keys(cancel) {
		if strings.HasSuffix(k, keySfxInstanceMeta) {
			ids = append(ids, strings.TrimSuffix(k, keySfxInstanceMeta))
		}
	}
	return ids, ctx.Err()
}
