package engine

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/TincheHK/prefw/log/logkeys"
	"github.com/TincheHK/prefw/workflow"
)

// ErrDuplicateTask is returned when registering an already registered task identity.
var ErrDuplicateTask = errors.New("duplicate task definition")

type registeredTask struct {
	version *semver.Version
	def     *workflow.TaskDefinition
}

func copyTaskDefinition(def *workflow.TaskDefinition) *workflow.TaskDefinition {
	c := *def
	c.Groups = append([]string(nil), def.Groups...)
	return &c
}

// RegisterTask makes the task definition def available for instantiation.
// The version of def must be a semantic version.
func (e *Engine) RegisterTask(def *workflow.TaskDefinition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrValidation, err)
	}
	v, err := semver.NewVersion(def.Version)
	if err != nil {
		return fmt.Errorf("%w: task %s: version: %v", workflow.ErrValidation, def.Name, err)
	}
	e.tasksMu.Lock()
	defer e.tasksMu.Unlock()
	for _, rt := range e.tasks[def.Name] {
		if rt.def.Version == def.Version {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, def.Identity())
		}
	}
	e.tasks[def.Name] = append(e.tasks[def.Name], &registeredTask{
		version: v,
		def:     copyTaskDefinition(def),
	})
	e.logger.Debug(logkeys.Message, "registered task", logkeys.TaskName, def.Identity())
	return nil
}

// TaskDefinition returns the highest registered version of the task
// definition name satisfying the semantic version constraint.
// An empty constraint matches any version.
func (e *Engine) TaskDefinition(name, constraint string) (*workflow.TaskDefinition, error) {
	var c *semver.Constraints
	if constraint != "" {
		var err error
		if c, err = semver.NewConstraint(constraint); err != nil {
			return nil, fmt.Errorf("%w: task %s: version constraint: %v", workflow.ErrValidation, name, err)
		}
	}
	e.tasksMu.RLock()
	defer e.tasksMu.RUnlock()
	var found *registeredTask
	for _, rt := range e.tasks[name] {
		if c != nil && !c.Check(rt.version) {
			continue
		}
		if found == nil || rt.version.GreaterThan(found.version) {
			found = rt
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: task definition %s", workflow.ErrNotFound, workflow.TaskIdentity(name, constraint))
	}
	return copyTaskDefinition(found.def), nil
}

// taskGroups returns the permission groups of the task definition t was
// instantiated from. Unknown definitions have no groups.
func (e *Engine) taskGroups(t *workflow.TaskInstance) []string {
	if t == nil {
		return nil
	}
	e.tasksMu.RLock()
	defer e.tasksMu.RUnlock()
	for _, rt := range e.tasks[t.Name] {
		if rt.def.Version == t.Version {
			return append([]string(nil), rt.def.Groups...)
		}
	}
	return nil
}

// RegisterProcessor binds p to a task definition endpoint.
func (e *Engine) RegisterProcessor(endpoint string, p workflow.Processor) error {
	if endpoint == "" {
		return fmt.Errorf("%w: %v", workflow.ErrValidation, workflow.ErrMissingTaskEndpoint)
	}
	if p == nil {
		return fmt.Errorf("%w: nil processor for %s", workflow.ErrValidation, endpoint)
	}
	e.processorsMu.Lock()
	defer e.processorsMu.Unlock()
	e.processors[endpoint] = p
	e.logger.Debug(logkeys.Message, "registered processor", logkeys.Endpoint, endpoint)
	return nil
}

func (e *Engine) processor(endpoint string) workflow.Processor {
	e.processorsMu.RLock()
	defer e.processorsMu.RUnlock()
	return e.processors[endpoint]
}
