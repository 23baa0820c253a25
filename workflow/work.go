package workflow

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingWorkID = errors.New("missing work id")
	ErrNoTasks       = errors.New("work has no tasks")
)

// WorkTask references a task definition within a work definition.
type WorkTask struct {
	Name string `json:"name"`

	// Version is a semantic version constraint. Empty matches the
	// highest registered version.
	Version string `json:"version,omitempty"`

	// Settings override the task defaults for this work.
	// They are copied onto the task instance at instantiation time.
	Settings map[string]interface{} `json:"settings,omitempty"`
}

// WorkDefinition is an ordered template of tasks.
// The order of Tasks is the execution order.
type WorkDefinition struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Tasks       []WorkTask `json:"tasks"`
	Timestamp   time.Time  `json:"timestamp,omitempty"`
}

// Validate checks w for missing values.
func (w *WorkDefinition) Validate() error {
	if w == nil {
		return errors.New("nil work definition")
	}
	if w.ID == "" {
		return ErrMissingWorkID
	}
	if len(w.Tasks) < 1 {
		return ErrNoTasks
	}
	for i, t := range w.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task %d: %w", i, ErrMissingTaskName)
		}
	}
	return nil
}
