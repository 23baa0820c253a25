// Package api contains helpers for the JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/TincheHK/prefw/ident"
	"github.com/TincheHK/prefw/workflow"
)

// StatusCode maps err to an HTTP status code.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, workflow.ErrValidation), errors.Is(err, ident.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrPermissionDenied), errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrMethodNotAllowed), errors.Is(err, workflow.ErrUnsupported):
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

// JSONError encodes err as JSON to w.
// A statusCode less than 1 is derived from err with StatusCode.
func JSONError(w http.ResponseWriter, err error, statusCode int) {
	jsonErr := &struct {
		Err string `json:"error"`
	}{Err: err.Error()}
	w.Header().Set("Content-type", "application/json")
	if statusCode < 1 {
		statusCode = StatusCode(err)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonErr)
}

// JSON encodes v as JSON to w with statusCode.
func JSON(w http.ResponseWriter, v interface{}, statusCode int) error {
	w.Header().Set("Content-type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}

const (
	// HeaderUser carries the authenticated user name.
	HeaderUser = "X-Prefw-User"

	// HeaderGroups carries the comma separated groups of the user.
	HeaderGroups = "X-Prefw-Groups"
)

// Caller returns the caller of r as set by the authentication layer in
// front of the API. Members of superGroup are super users.
func Caller(r *http.Request, superGroup string) *workflow.Caller {
	c := &workflow.Caller{User: r.Header.Get(HeaderUser)}
	for _, g := range strings.Split(r.Header.Get(HeaderGroups), ",") {
		if g = strings.TrimSpace(g); g == "" {
			continue
		}
		c.Groups = append(c.Groups, g)
		if superGroup != "" && g == superGroup {
			c.SuperUser = true
		}
	}
	return c
}
