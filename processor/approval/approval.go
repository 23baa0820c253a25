// Package approval implements a task processor for approve or reject decisions.
package approval

import (
	"context"
	"net/http"

	"github.com/TincheHK/prefw/processor"
	"github.com/TincheHK/prefw/workflow"
)

// Endpoint is the task definition endpoint the processor is usually bound to.
const Endpoint = "approval"

// DefaultKey is the data store key decisions are recorded under.
const DefaultKey = "approval"

// Approval decides a task with the "approved" request parameter.
// An approval advances the work instance. Anything else rejects the
// task, sending the work instance back to the previous task with the
// "reason" parameter as its error.
//
// The decision is recorded in the data store under the task setting
// "key" or DefaultKey.
type Approval struct{}

// New creates a new approval processor.
func New() *Approval {
	return &Approval{}
}

// Process implements workflow.Processor.
func (a *Approval) Process(_ context.Context, x *workflow.Execution) (*workflow.Promise, error) {
	key := processor.StringSetting(x.Task.Settings, "key")
	if key == "" {
		key = DefaultKey
	}
	approved := processor.Bool(x.Params["approved"])
	reason, _ := x.Params["reason"].(string)

	decision := map[string]interface{}{
		"approved": approved,
		"task":     x.Task.ID,
	}
	if x.Caller != nil {
		decision["user"] = x.Caller.User
	}
	if reason != "" {
		decision["reason"] = reason
	}
	x.Data().Set(key, decision)

	if approved {
		return nil, nil
	}
	if reason == "" {
		reason = "not approved"
	}
	x.Reject(reason, http.StatusUnprocessableEntity)
	return x.Promise(), nil
}
