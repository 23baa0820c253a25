package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// TaskType distinguishes interactive tasks from fire-and-forget ones.
type TaskType string

const (
	// TaskTemplate tasks are worked on by end users.
	TaskTemplate TaskType = "Template"

	// TaskHeadless tasks run without end-user interaction.
	// Synchronous failures of headless tasks revert to the previous task.
	TaskHeadless TaskType = "Headless"
)

func (t TaskType) Valid() bool {
	return t == TaskTemplate || t == TaskHeadless
}

var (
	ErrMissingTaskName     = errors.New("missing task name")
	ErrMissingTaskVersion  = errors.New("missing task version")
	ErrMissingTaskEndpoint = errors.New("missing task endpoint")
)

// TaskDefinition describes a unit of work.
// Definitions are read-only once registered.
type TaskDefinition struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Type     TaskType `json:"type,omitempty"`
	Groups   []string `json:"groups,omitempty"`
	Endpoint string   `json:"endpoint"`

	// SettingsSchema is an optional description of the accepted
	// per-task settings. It is carried but not enforced.
	SettingsSchema map[string]interface{} `json:"settings_schema,omitempty"`
}

// Identity returns the "name@version" identity of the definition.
func (d *TaskDefinition) Identity() string {
	return TaskIdentity(d.Name, d.Version)
}

// TaskIdentity joins name and version into a task identity.
func TaskIdentity(name, version string) string {
	if version == "" {
		return name
	}
	return name + "@" + version
}

// SplitTaskIdentity splits a "name@version" identity.
func SplitTaskIdentity(identity string) (name, version string) {
	name, version, _ = strings.Cut(identity, "@")
	return
}

// Validate checks d for missing values.
func (d *TaskDefinition) Validate() error {
	if d == nil {
		return errors.New("nil task definition")
	}
	if d.Name == "" {
		return ErrMissingTaskName
	}
	if strings.Contains(d.Name, "@") {
		return fmt.Errorf("invalid task name: %s", d.Name)
	}
	if d.Version == "" {
		return ErrMissingTaskVersion
	}
	if d.Endpoint == "" {
		return ErrMissingTaskEndpoint
	}
	if d.Type != "" && !d.Type.Valid() {
		return fmt.Errorf("invalid task type: %s", d.Type)
	}
	return nil
}

// Headless reports whether d is a headless task.
func (d *TaskDefinition) Headless() bool {
	return d.Type == TaskHeadless
}
