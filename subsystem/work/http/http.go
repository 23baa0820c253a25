// Package http contains read-only HTTP handlers for work definitions.
package http

import (
	"net/http"

	"github.com/TincheHK/prefw/http/api"
	"github.com/TincheHK/prefw/log/logkeys"
	"github.com/TincheHK/prefw/subsystem/work/storage"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

// GetHandler returns an HTTP handler that fetches a work definition.
func GetHandler(store storage.ReadStorage, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		id := flow.Param(r.Context(), "id")
		logger = logger.With(logkeys.WorkID, id)

		work, err := store.RetrieveWorkDefinition(r.Context(), id)
		if err != nil {
			logger.Info(logkeys.Message, "retrieve work definition", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}

		logger.Debug(
			logkeys.Message, "retrieved work definition",
			logkeys.GenericCount, len(work.Tasks),
		)
		if err = api.JSON(w, work, http.StatusOK); err != nil {
			logger.Info(logkeys.Message, "encoding json to body", logkeys.Error, err)
		}
	}
}

// ListHandler returns an HTTP handler that lists work definition identifiers.
func ListHandler(store storage.ReadStorage, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		ids, err := store.RetrieveWorkDefinitionIDs(r.Context())
		if err != nil {
			logger.Info(logkeys.Message, "retrieve work definition ids", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		if err = api.JSON(w, ids, http.StatusOK); err != nil {
			logger.Info(logkeys.Message, "encoding json to body", logkeys.Error, err)
		}
	}
}
