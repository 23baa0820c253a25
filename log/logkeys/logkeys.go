// Package logkeys defines some static logging keys for consistent structured logging output.
// Mostly exists as a mental aid when drafting log messages.
package logkeys

const (
	Message = "msg"
	Error   = "err"

	// identifier of a work instance.
	InstanceID = "instance_id"

	// identifier of a task instance. usually the active (next) task.
	TaskID = "task_id"

	// identifier of the work definition an instance was created from.
	WorkID = "work_id"

	// task definition name and version ("name@version").
	TaskName = "task_name"

	// outcome of a processed step (advanced, reverted, closed, ...).
	Outcome = "outcome"

	// permission group name. used when notifying.
	Group = "group"

	// the user the request is made on behalf of.
	User = "user"

	// processor endpoint descriptor.
	Endpoint = "endpoint"

	// a context-dependent numerical count/length of something
	GenericCount = "count"
)
