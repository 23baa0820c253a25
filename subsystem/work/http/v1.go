package http

import (
	"net/http"

	"github.com/TincheHK/prefw/subsystem/work/storage"

	"github.com/micromdm/nanolib/log"
)

// Mux can register HTTP handlers.
type Mux interface {
	// Handle registers the handler for the given pattern.
	Handle(pattern string, handler http.Handler, methods ...string)
}

// HandleAPIv1 registers the read-only work definition API handlers
// into mux. API endpoint paths are prepended with prefix.
func HandleAPIv1(prefix string, mux Mux, logger log.Logger, s storage.ReadStorage) {
	mux.Handle(
		prefix+"/work",
		ListHandler(s, logger.With("handler", "list work")),
		"GET",
	)
	mux.Handle(
		prefix+"/work/:id",
		GetHandler(s, logger.With("handler", "get work")),
		"GET",
	)
}
