package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/TincheHK/prefw/ident"
	"github.com/TincheHK/prefw/utils/uuid"
)

// ErrInconsistent indicates a work instance whose next task is not part
// of its own task list or whose state disagrees with its next task.
var ErrInconsistent = errors.New("inconsistent work instance")

// State is the lifecycle state of a work instance.
type State string

const (
	StateOpen   State = "Open"
	StateClosed State = "Closed"
)

// Outcome is the kind of transition a process call decided.
type Outcome string

const (
	OutcomeAdvanced Outcome = "advanced"
	OutcomeReverted Outcome = "reverted"
	OutcomeClosed   Outcome = "closed"
	OutcomeFailed   Outcome = "failed"
)

// Transition describes a decided state machine step.
type Transition struct {
	Outcome Outcome

	// From is the task that was active before the transition.
	From string

	// To is the next task after the transition. Empty when closed.
	To string

	// FellBack is set when From could not be located in the task list
	// and the first task was used instead.
	FellBack bool
}

// WorkInstance is a running instantiation of a work definition.
//
// A WorkInstance is immutable outside of the windows opened by Mutate.
// It is not safe for concurrent use; callers serialize access per identity.
type WorkInstance struct {
	id          string
	workID      string
	description string
	state       State
	nextTask    string
	data        *DataStore
	lastError   *TaskError
	timestamp   time.Time
	tasks       []*TaskInstance

	immutable bool
	creating  bool
}

// NewWorkInstance instantiates work. defs are the resolved task definitions
// of work.Tasks in the same order. Identifiers for the instance and each
// task instance are taken from ider.
func NewWorkInstance(ider uuid.IDer, work *WorkDefinition, description string, defs []*TaskDefinition) (*WorkInstance, error) {
	if description == "" {
		return nil, fmt.Errorf("%w: missing description", ErrValidation)
	}
	if work == nil {
		return nil, fmt.Errorf("%w: missing work definition", ErrValidation)
	}
	if len(work.Tasks) < 1 {
		return nil, fmt.Errorf("%w: %v", ErrValidation, ErrNoTasks)
	}
	if len(defs) != len(work.Tasks) {
		return nil, fmt.Errorf("%w: %d task definitions for %d work tasks", ErrValidation, len(defs), len(work.Tasks))
	}
	wi := &WorkInstance{
		id:          ider.ID(),
		workID:      work.ID,
		description: description,
		state:       StateOpen,
		data:        NewDataStore(nil),
		immutable:   true,
		creating:    true,
	}
	if !ident.Valid(wi.id) {
		return nil, fmt.Errorf("%w: work instance: %w", ErrValidation, ident.ErrInvalidIdentity)
	}
	for i, def := range defs {
		if def == nil {
			return nil, fmt.Errorf("%w: missing task definition for %s", ErrValidation, work.Tasks[i].Name)
		}
		if _, err := wi.NewTaskInstance(ider.ID(), def, work.Tasks[i].Settings); err != nil {
			return nil, err
		}
	}
	wi.nextTask = wi.tasks[0].ID
	wi.creating = false
	return wi, nil
}

// TaskWritable reports whether the task instance id may be created or
// saved. Task instances of an immutable work instance are only writable
// while it is being created, or while it is open and id matches the
// next task (or there is no next task yet).
func (wi *WorkInstance) TaskWritable(id string) error {
	if !wi.immutable || wi.creating {
		return nil
	}
	if wi.state == StateOpen && (wi.nextTask == "" || wi.nextTask == id) {
		return nil
	}
	return fmt.Errorf("%w: work instance %s is immutable", ErrForbidden, wi.id)
}

// NewTaskInstance appends a new task instance for def to wi.
func (wi *WorkInstance) NewTaskInstance(id string, def *TaskDefinition, settings map[string]interface{}) (*TaskInstance, error) {
	if err := wi.TaskWritable(id); err != nil {
		return nil, err
	}
	if !ident.Valid(id) {
		return nil, fmt.Errorf("%w: task instance: %w", ErrValidation, ident.ErrInvalidIdentity)
	}
	if wi.indexOf(id) >= 0 {
		return nil, fmt.Errorf("%w: duplicate task instance %s", ErrValidation, id)
	}
	t := &TaskInstance{
		ID:             id,
		WorkInstanceID: wi.id,
		Order:          len(wi.tasks),
		Name:           def.Name,
		Version:        def.Version,
		Type:           def.Type,
		Endpoint:       def.Endpoint,
	}
	if t.Type == "" {
		t.Type = TaskTemplate
	}
	if settings != nil {
		t.Settings = make(map[string]interface{}, len(settings))
		for k, v := range settings {
			t.Settings[k] = v
		}
	}
	wi.tasks = append(wi.tasks, t)
	return t.clone(), nil
}

// ID returns the work instance identifier.
func (wi *WorkInstance) ID() string { return wi.id }

// WorkID returns the identifier of the instantiated work definition.
func (wi *WorkInstance) WorkID() string { return wi.workID }

func (wi *WorkInstance) Description() string { return wi.description }

func (wi *WorkInstance) State() State { return wi.state }

// Timestamp is assigned by the storage on save.
func (wi *WorkInstance) Timestamp() time.Time { return wi.timestamp }

// Immutable reports whether wi is currently locked against mutation.
func (wi *WorkInstance) Immutable() bool { return wi.immutable }

// NextTask returns the identifier of the current task.
// It is empty when wi is closed.
func (wi *WorkInstance) NextTask() string { return wi.nextTask }

// LastError returns a copy of the last processing error, if any.
func (wi *WorkInstance) LastError() *TaskError {
	if wi.lastError == nil {
		return nil
	}
	te := *wi.lastError
	return &te
}

// DataStore returns a copy of the data store contents.
func (wi *WorkInstance) DataStore() map[string]interface{} {
	return wi.data.Map()
}

// Tasks returns copies of the task instances in order.
func (wi *WorkInstance) Tasks() []*TaskInstance {
	r := make([]*TaskInstance, len(wi.tasks))
	for i, t := range wi.tasks {
		r[i] = t.clone()
	}
	return r
}

// Task returns a copy of the task instance id.
func (wi *WorkInstance) Task(id string) (*TaskInstance, bool) {
	i := wi.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return wi.tasks[i].clone(), true
}

// NextTaskInstance returns a copy of the current task instance.
func (wi *WorkInstance) NextTaskInstance() (*TaskInstance, bool) {
	if wi.nextTask == "" {
		return nil, false
	}
	return wi.Task(wi.nextTask)
}

// NewExecution prepares an invocation of the current task.
// The execution is bound to the live data store of wi which is the
// only part of wi a processor may mutate.
func (wi *WorkInstance) NewExecution(caller *Caller, method string, params map[string]interface{}) (*Execution, error) {
	t, ok := wi.NextTaskInstance()
	if !ok {
		return nil, fmt.Errorf("%w: no next task for work instance %s", ErrNotFound, wi.id)
	}
	return NewExecution(t, wi.data, caller, method, params), nil
}

func (wi *WorkInstance) indexOf(id string) int {
	for i, t := range wi.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Permit grants write access to a work instance for the duration of
// a Mutate window. A permit is useless once its window has closed.
type Permit struct {
	wi      *WorkInstance
	expired bool
}

// Mutate opens a mutation window on wi and calls fn with its permit.
// wi is immutable again when Mutate returns.
func (wi *WorkInstance) Mutate(fn func(*Permit) error) error {
	p := &Permit{wi: wi}
	wi.immutable = false
	defer func() {
		p.expired = true
		wi.immutable = true
	}()
	return fn(p)
}

func (p *Permit) check() error {
	if p == nil || p.wi == nil || p.expired {
		return fmt.Errorf("%w: mutation permit expired", ErrForbidden)
	}
	if p.wi.state != StateOpen {
		return fmt.Errorf("%w: work instance %s is closed", ErrForbidden, p.wi.id)
	}
	return nil
}

// Absorb merges incoming data store mutations and clears the last error.
func (p *Permit) Absorb(data map[string]interface{}) error {
	if err := p.check(); err != nil {
		return err
	}
	p.wi.data.Merge(data)
	p.wi.lastError = nil
	return nil
}

// Fail records err without moving the next task.
func (p *Permit) Fail(err *TaskError) (*Transition, error) {
	if e := p.check(); e != nil {
		return nil, e
	}
	wi := p.wi
	if err == nil {
		err = &TaskError{Message: "task failed"}
	}
	wi.lastError = err
	wi.timestamp = time.Time{}
	return &Transition{Outcome: OutcomeFailed, From: wi.nextTask, To: wi.nextTask}, nil
}

// Settle decides the transition for a settled current task.
// A nil rejection advances to the next task in order, closing wi after
// the last one. A rejection records it and reverts to the previous task,
// staying on the first task. The timestamp is cleared so the storage
// assigns a fresh one.
func (p *Permit) Settle(rejection *TaskError) (*Transition, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	wi := p.wi
	if len(wi.tasks) < 1 {
		return nil, fmt.Errorf("%w: no tasks", ErrInconsistent)
	}
	tr := &Transition{From: wi.nextTask}
	i := wi.indexOf(wi.nextTask)
	if i < 0 {
		tr.FellBack = true
	}
	if rejection != nil {
		wi.lastError = rejection
		tr.Outcome = OutcomeReverted
		if i > 0 {
			wi.nextTask = wi.tasks[i-1].ID
		} else {
			wi.nextTask = wi.tasks[0].ID
		}
	} else if i < 0 {
		tr.Outcome = OutcomeAdvanced
		wi.nextTask = wi.tasks[0].ID
	} else if i+1 < len(wi.tasks) {
		tr.Outcome = OutcomeAdvanced
		wi.nextTask = wi.tasks[i+1].ID
	} else {
		tr.Outcome = OutcomeClosed
		wi.state = StateClosed
		wi.nextTask = ""
	}
	tr.To = wi.nextTask
	wi.timestamp = time.Time{}
	return tr, nil
}

// Snapshot is the persisted form of a work instance.
type Snapshot struct {
	ID          string                 `json:"id"`
	WorkID      string                 `json:"work"`
	Description string                 `json:"description"`
	State       State                  `json:"state"`
	NextTask    string                 `json:"nextTask,omitempty"`
	DataStore   map[string]interface{} `json:"dataStore,omitempty"`
	LastError   *TaskError             `json:"lastError,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Tasks       []*TaskInstance        `json:"tasks"`
}

// Snapshot returns a copy of wi suitable for persistence.
func (wi *WorkInstance) Snapshot() *Snapshot {
	return &Snapshot{
		ID:          wi.id,
		WorkID:      wi.workID,
		Description: wi.description,
		State:       wi.state,
		NextTask:    wi.nextTask,
		DataStore:   wi.data.Map(),
		LastError:   wi.LastError(),
		Timestamp:   wi.timestamp,
		Tasks:       wi.Tasks(),
	}
}

// Validate checks s for consistency.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	if !ident.Valid(s.ID) {
		return fmt.Errorf("work instance: %w", ident.ErrInvalidIdentity)
	}
	if len(s.Tasks) < 1 {
		return fmt.Errorf("%w: %s: no tasks", ErrInconsistent, s.ID)
	}
	seen := make(map[string]bool, len(s.Tasks))
	for _, t := range s.Tasks {
		if t == nil {
			return fmt.Errorf("%w: %s: nil task", ErrInconsistent, s.ID)
		}
		if !ident.Valid(t.ID) {
			return fmt.Errorf("task instance: %w", ident.ErrInvalidIdentity)
		}
		if t.WorkInstanceID != s.ID {
			return fmt.Errorf("%w: %s: task %s belongs to %s", ErrInconsistent, s.ID, t.ID, t.WorkInstanceID)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: %s: duplicate task %s", ErrInconsistent, s.ID, t.ID)
		}
		seen[t.ID] = true
	}
	switch s.State {
	case StateOpen:
		if !seen[s.NextTask] {
			return fmt.Errorf("%w: %s: next task %q not in task list", ErrInconsistent, s.ID, s.NextTask)
		}
	case StateClosed:
		if s.NextTask != "" {
			return fmt.Errorf("%w: %s: closed with next task", ErrInconsistent, s.ID)
		}
	default:
		return fmt.Errorf("%w: %s: invalid state %q", ErrInconsistent, s.ID, s.State)
	}
	return nil
}

// Restore hydrates an immutable work instance from s.
func Restore(s *Snapshot) (*WorkInstance, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	wi := &WorkInstance{
		id:          s.ID,
		workID:      s.WorkID,
		description: s.Description,
		state:       s.State,
		nextTask:    s.NextTask,
		data:        NewDataStore(s.DataStore),
		timestamp:   s.Timestamp,
		immutable:   true,
	}
	if s.LastError != nil {
		te := *s.LastError
		wi.lastError = &te
	}
	for _, t := range s.Tasks {
		wi.tasks = append(wi.tasks, t.clone())
	}
	sort.SliceStable(wi.tasks, func(i, j int) bool {
		return wi.tasks[i].Order < wi.tasks[j].Order
	})
	return wi, nil
}

// MarshalJSON encodes the external representation of wi.
// nextTask and lastError are null when absent.
func (wi *WorkInstance) MarshalJSON() ([]byte, error) {
	var nextTask *string
	if wi.nextTask != "" {
		nt := wi.nextTask
		nextTask = &nt
	}
	return json.Marshal(&struct {
		ID          string                 `json:"id"`
		Work        string                 `json:"work"`
		Description string                 `json:"description"`
		State       State                  `json:"state"`
		NextTask    *string                `json:"nextTask"`
		DataStore   map[string]interface{} `json:"dataStore"`
		LastError   *TaskError             `json:"lastError"`
		Timestamp   time.Time              `json:"timestamp"`
		Tasks       []*TaskInstance        `json:"tasks"`
	}{
		ID:          wi.id,
		Work:        wi.workID,
		Description: wi.description,
		State:       wi.state,
		NextTask:    nextTask,
		DataStore:   wi.data.Map(),
		LastError:   wi.lastError,
		Timestamp:   wi.timestamp,
		Tasks:       wi.tasks,
	})
}
