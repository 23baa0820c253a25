package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/TincheHK/prefw/ident"
	"github.com/TincheHK/prefw/workflow"
)

func TestStatusCode(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: missing description", workflow.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("id: %w", ident.ErrInvalidIdentity), http.StatusBadRequest},
		{workflow.ErrPermissionDenied, http.StatusForbidden},
		{workflow.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: x", workflow.ErrNotFound), http.StatusNotFound},
		{workflow.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{workflow.ErrUnsupported, http.StatusMethodNotAllowed},
		{workflow.ErrInternal, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		if have := StatusCode(tc.err); have != tc.want {
			t.Errorf("%v: have %v, want %v", tc.err, have, tc.want)
		}
	}
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, fmt.Errorf("%w: instance", workflow.ErrNotFound), 0)
	if have, want := rec.Code, http.StatusNotFound; have != want {
		t.Errorf("status: have %v, want %v", have, want)
	}
	if !strings.Contains(rec.Body.String(), `"error":"not found: instance"`) {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestCaller(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderUser, "alice")
	r.Header.Set(HeaderGroups, "sales, admins,,")

	c := Caller(r, "admins")
	want := &workflow.Caller{User: "alice", Groups: []string{"sales", "admins"}, SuperUser: true}
	if !reflect.DeepEqual(c, want) {
		t.Errorf("have %+v, want %+v", c, want)
	}
	if Caller(r, "").SuperUser {
		t.Error("expected no super user without super group")
	}
}
