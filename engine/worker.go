package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/TincheHK/prefw/engine/storage"
	"github.com/TincheHK/prefw/log/logkeys"
	"github.com/TincheHK/prefw/workflow"

	"github.com/micromdm/nanolib/log"
)

// TaskProcessor processes work instances by their active task.
type TaskProcessor interface {
	ProcessTask(ctx context.Context, taskID string, req *Request) (*workflow.WorkInstance, error)
}

// Worker drives work instances waiting on headless tasks.
// Headless tasks have no end user to process them so the worker
// processes them on behalf of the system.
type Worker struct {
	processor TaskProcessor
	storage   storage.ReadStorage
	logger    log.Logger
}

type WorkerOption func(w *Worker)

func WithWorkerLogger(logger log.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(processor TaskProcessor, storage storage.ReadStorage, opts ...WorkerOption) *Worker {
	w := &Worker{
		processor: processor,
		storage:   storage,
		logger:    log.NopLogger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunOnce processes every Open work instance whose next task is headless.
// Instances are processed concurrently. RunOnce returns when all of
// them have settled or ctx is done. Tasks still pending when ctx is done
// keep running and are picked up by a later run once they settle.
func (w *Worker) RunOnce(ctx context.Context) error {
	ids, err := w.storage.RetrieveOpenWorkInstanceIDs(ctx, workflow.TaskHeadless)
	if err != nil {
		return logAndError(fmt.Errorf("retrieving headless work instances: %w", err), w.logger, "running worker")
	}
	if len(ids) < 1 {
		return nil
	}
	w.logger.Debug(logkeys.Message, "processing headless tasks", logkeys.GenericCount, len(ids))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			w.processOne(ctx, id)
		}(id)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return logAndError(fmt.Errorf("headless run cut short: %w", err), w.logger, "running worker")
	}
	return nil
}

func (w *Worker) processOne(ctx context.Context, id string) {
	logger := w.logger.With(logkeys.InstanceID, id)
	s, err := w.storage.RetrieveWorkInstance(ctx, id)
	if err != nil {
		logger.Info(logkeys.Message, "retrieving work instance", logkeys.Error, err)
		return
	}
	logger = logger.With(logkeys.TaskID, s.NextTask)
	if !nextHeadless(s) {
		logger.Debug(logkeys.Message, "next task no longer headless")
		return
	}
	// the instance may have moved on since it was loaded. pinning the
	// task makes processing a no-op if it did.
	wi, err := w.processor.ProcessTask(ctx, s.NextTask, &Request{
		Method: http.MethodPost,
		Caller: workflow.InternalCaller(),
	})
	if errors.Is(err, workflow.ErrNotFound) {
		logger.Debug(logkeys.Message, "headless task no longer active")
		return
	} else if err != nil {
		logger.Info(logkeys.Message, "processing headless task", logkeys.Error, err)
		return
	}
	logger.Debug(
		logkeys.Message, "processed headless task",
		"state", wi.State(),
		"next_task", wi.NextTask(),
	)
}

// nextHeadless reports whether s is Open and waiting on a headless task.
func nextHeadless(s *workflow.Snapshot) bool {
	if s.State != workflow.StateOpen {
		return false
	}
	for _, t := range s.Tasks {
		if t.ID == s.NextTask {
			return t.Headless()
		}
	}
	return false
}

func logAndError(err error, logger log.Logger, msg string) error {
	logger.Info(logkeys.Message, msg, logkeys.Error, err)
	return fmt.Errorf("%s: %w", msg, err)
}
