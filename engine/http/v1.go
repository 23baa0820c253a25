package http

import (
	"net/http"

	"github.com/micromdm/nanolib/log"
)

// Mux can register HTTP handlers.
// Ostensibly this supports flow router.
type Mux interface {
	// Handle registers the handler for the given pattern.
	Handle(pattern string, handler http.Handler, methods ...string)
}

// processMethods are the request methods routed to the process
// handlers. The engine rejects non-write methods for regular callers.
var processMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// HandleAPIv1 registers the various API handlers into mux.
// API endpoint paths are prepended with prefix.
// Authentication or any other layered handlers are not present.
// They are assumed to be layered with mux, possibly at the Handle call.
// The caller is read from request headers set by that layer and members
// of superGroup are super users.
// The logger is adorned with a "handler" key of the endpoint name.
func HandleAPIv1(prefix string, mux Mux, logger log.Logger, e Engine, superGroup string) {
	// work instances

	mux.Handle(
		prefix+"/work/:id/instance",
		CreateInstanceHandler(e, superGroup, logger.With("handler", "create instance")),
		"POST",
	)
	mux.Handle(
		prefix+"/instance/:id",
		GetInstanceHandler(e, superGroup, logger.With("handler", "get instance")),
		"GET",
	)
	mux.Handle(
		prefix+"/instance/:id",
		DeleteInstanceHandler(e, superGroup, logger.With("handler", "delete instance")),
		"DELETE",
	)
	mux.Handle(
		prefix+"/instance/:id/process",
		ProcessHandler(e, superGroup, logger.With("handler", "process instance")),
		processMethods...,
	)

	// task instances

	mux.Handle(
		prefix+"/task/:id/instance",
		GetTaskInstanceHandler(e, superGroup, logger.With("handler", "get task instance")),
		"GET",
	)
	mux.Handle(
		prefix+"/task/:id/process",
		ProcessTaskHandler(e, superGroup, logger.With("handler", "process task")),
		processMethods...,
	)
	mux.Handle(
		prefix+"/task/:id",
		DeleteTaskInstanceHandler(e, superGroup, logger.With("handler", "delete task")),
		"DELETE",
	)
}
