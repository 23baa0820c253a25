// Package form implements a task processor for end-user form submissions.
package form

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/TincheHK/prefw/processor"
	"github.com/TincheHK/prefw/workflow"
)

// Endpoint is the task definition endpoint the processor is usually bound to.
const Endpoint = "form"

// Form stores submitted fields in the work instance data store.
//
// The task setting "fields" limits which request parameters are stored.
// The task setting "required" lists data store keys that must be present
// after the submission for the task to succeed.
type Form struct{}

// New creates a new form processor.
func New() *Form {
	return &Form{}
}

// Process implements workflow.Processor.
func (f *Form) Process(_ context.Context, x *workflow.Execution) (*workflow.Promise, error) {
	fields := processor.StringsSetting(x.Task.Settings, "fields")
	allowed := make(map[string]bool, len(fields))
	for _, k := range fields {
		allowed[k] = true
	}
	for k, v := range x.Params {
		if len(allowed) > 0 && !allowed[k] {
			continue
		}
		x.Data().Set(k, v)
	}

	var missing []string
	for _, k := range processor.StringsSetting(x.Task.Settings, "required") {
		if v, ok := x.Data().Get(k); !ok || v == nil || v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, workflow.NewTaskError(
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
			http.StatusBadRequest,
		)
	}
	return nil, nil
}
