package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates bad input shape, e.g. a missing description.
	ErrValidation = errors.New("validation error")

	// ErrPermissionDenied indicates the caller lacks the required group membership.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound indicates a missing work or task instance.
	ErrNotFound = errors.New("not found")

	// ErrMethodNotAllowed indicates a process invocation that was not a
	// write-style request from a caller without super-user privilege.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrForbidden indicates an attempted mutation of an immutable entity.
	ErrForbidden = errors.New("forbidden")

	// ErrUnsupported indicates an operation that is never supported, e.g.
	// deleting a task instance directly.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrInternal indicates a persistence failure.
	ErrInternal = errors.New("internal error")

	// ErrNoEndpoint is returned when a task has no processor bound to its endpoint.
	ErrNoEndpoint = errors.New("task has no endpoint defined")
)

// TaskError is a human readable failure with an optional machine code.
// It is the last-error record of a work instance and the error type task
// processors return to report a failure code.
type TaskError struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// NewTaskError creates a new task error.
func NewTaskError(message string, code int) *TaskError {
	return &TaskError{Message: message, Code: code}
}

func (e *TaskError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	}
	return e.Message
}

// AsTaskError converts err into a task error.
// A TaskError anywhere in the chain of err keeps its code.
func AsTaskError(err error) *TaskError {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) {
		return te
	}
	return &TaskError{Message: err.Error()}
}
