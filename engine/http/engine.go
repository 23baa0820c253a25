// Package http contains HTTP handlers that work with the prefw engine.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/TincheHK/prefw/engine"
	"github.com/TincheHK/prefw/http/api"
	"github.com/TincheHK/prefw/log/logkeys"
	"github.com/TincheHK/prefw/workflow"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

// Engine is the engine surface used by the handlers.
type Engine interface {
	CreateInstance(ctx context.Context, workID, description string, caller *workflow.Caller) (*workflow.WorkInstance, error)
	Instance(ctx context.Context, id string, caller *workflow.Caller) (*workflow.WorkInstance, error)
	InstanceForTask(ctx context.Context, taskID string, caller *workflow.Caller) (*workflow.WorkInstance, error)
	Process(ctx context.Context, id string, req *engine.Request) (*workflow.WorkInstance, error)
	ProcessTask(ctx context.Context, taskID string, req *engine.Request) (*workflow.WorkInstance, error)
	DeleteInstance(ctx context.Context, id string, caller *workflow.Caller) error
	DeleteTaskInstance(ctx context.Context, taskID string, caller *workflow.Caller) error
}

// ProcessBody is the JSON body of a process request.
type ProcessBody struct {
	DataStore map[string]interface{} `json:"dataStore"`
	Params    map[string]interface{} `json:"params"`
}

// decodeJSON decodes the body of r into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	} else if err != nil {
		return fmt.Errorf("%w: decoding body: %v", workflow.ErrValidation, err)
	}
	return nil
}

func writeInstance(w http.ResponseWriter, logger log.Logger, wi *workflow.WorkInstance, statusCode int) {
	if err := api.JSON(w, wi, statusCode); err != nil {
		logger.Info(logkeys.Message, "encoding json to body", logkeys.Error, err)
	}
}

// CreateInstanceHandler creates a HandlerFunc that instantiates a work definition.
func CreateInstanceHandler(e Engine, superGroup string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		caller := api.Caller(r, superGroup)
		workID := flow.Param(r.Context(), "id")
		logger = logger.With(
			logkeys.WorkID, workID,
			logkeys.User, caller.User,
		)

		body := new(struct {
			Description string `json:"description"`
		})
		if err := decodeJSON(r, body); err != nil {
			logger.Info(logkeys.Message, "decoding body", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}

		wi, err := e.CreateInstance(r.Context(), workID, body.Description, caller)
		if err != nil {
			logger.Info(logkeys.Message, "creating work instance", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}

		logger.Debug(
			logkeys.Message, "created work instance",
			logkeys.InstanceID, wi.ID(),
		)
		writeInstance(w, logger, wi, http.StatusCreated)
	}
}

// GetInstanceHandler creates a HandlerFunc that returns a work instance.
func GetInstanceHandler(e Engine, superGroup string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		caller := api.Caller(r, superGroup)
		id := flow.Param(r.Context(), "id")
		logger = logger.With(logkeys.InstanceID, id)

		wi, err := e.Instance(r.Context(), id, caller)
		if err != nil {
			logger.Info(logkeys.Message, "retrieving work instance", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		writeInstance(w, logger, wi, http.StatusOK)
	}
}

// GetTaskInstanceHandler creates a HandlerFunc that returns the work
// instance waiting on a task instance.
func GetTaskInstanceHandler(e Engine, superGroup string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		caller := api.Caller(r, superGroup)
		taskID := flow.Param(r.Context(), "id")
		logger = logger.With(logkeys.TaskID, taskID)

		wi, err := e.InstanceForTask(r.Context(), taskID, caller)
		if err != nil {
			logger.Info(logkeys.Message, "retrieving work instance", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		writeInstance(w, logger, wi, http.StatusOK)
	}
}

func processRequest(r *http.Request, superGroup string) (*engine.Request, error) {
	body := new(ProcessBody)
	if err := decodeJSON(r, body); err != nil {
		return nil, err
	}
	return &engine.Request{
		Method:    r.Method,
		Caller:    api.Caller(r, superGroup),
		DataStore: body.DataStore,
		Params:    body.Params,
	}, nil
}

// ProcessHandler creates a HandlerFunc that processes the next task of
// a work instance. Any request method is accepted; the engine decides.
func ProcessHandler(e Engine, superGroup string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		id := flow.Param(r.Context(), "id")
		logger = logger.With(logkeys.InstanceID, id)

		req, err := processRequest(r, superGroup)
		if err != nil {
			logger.Info(logkeys.Message, "decoding body", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}

		wi, err := e.Process(r.Context(), id, req)
		if err != nil {
			logger.Info(logkeys.Message, "processing work instance", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		writeInstance(w, logger, wi, http.StatusOK)
	}
}

// ProcessTaskHandler creates a HandlerFunc that processes a work
// instance by its active task instance.
func ProcessTaskHandler(e Engine, superGroup string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		taskID := flow.Param(r.Context(), "id")
		logger = logger.With(logkeys.TaskID, taskID)

		req, err := processRequest(r, superGroup)
		if err != nil {
			logger.Info(logkeys.Message, "decoding body", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}

		wi, err := e.ProcessTask(r.Context(), taskID, req)
		if err != nil {
			logger.Info(logkeys.Message, "processing task instance", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		writeInstance(w, logger, wi, http.StatusOK)
	}
}

// DeleteInstanceHandler creates a HandlerFunc that deletes a work instance.
func DeleteInstanceHandler(e Engine, superGroup string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		caller := api.Caller(r, superGroup)
		id := flow.Param(r.Context(), "id")
		logger = logger.With(
			logkeys.InstanceID, id,
			logkeys.User, caller.User,
		)

		if err := e.DeleteInstance(r.Context(), id, caller); err != nil {
			logger.Info(logkeys.Message, "deleting work instance", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}

		logger.Debug(logkeys.Message, "deleted work instance")
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteTaskInstanceHandler creates a HandlerFunc that deletes a task instance.
func DeleteTaskInstanceHandler(e Engine, superGroup string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		taskID := flow.Param(r.Context(), "id")

		if err := e.DeleteTaskInstance(r.Context(), taskID, api.Caller(r, superGroup)); err != nil {
			logger.Info(logkeys.Message, "deleting task instance", logkeys.TaskID, taskID, logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
