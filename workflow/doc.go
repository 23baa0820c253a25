/*
Package workflow defines the workflow domain types and the work instance
state machine.

# Definitions

A task definition describes a unit of work: a name, a semantic version,
the permission groups whose members work on it and an endpoint. The
endpoint names the Processor that carries the business logic of the
task. Task definitions are identified by "name@version" and are
read-only once registered.

A work definition is an ordered list of references to task definitions
with per-task settings. The order of the list is the execution order.

# Instances

Instantiating a work definition creates a work instance together with
one task instance per task in template order. The work instance starts
Open with its next task set to the first task instance. Processing the
next task either advances to the following task, reverts to the
previous one (on rejection) or closes the work instance after the last
task. A closed work instance has no next task and never opens again.

Work instances are immutable outside of mutation windows. The state
machine opens a window with Mutate and receives a Permit which is the
only way to absorb incoming data, record failures and settle the
current task. The permit expires when the window closes.

# Processors

A Processor is invoked with an Execution that gives access to the task
instance, the caller, request parameters and the data store. It returns
one of three shapes: immediate success, immediate failure or a pending
Promise. Processors that complete asynchronously return the execution
promise and later call Resolve or Reject on the execution. The data
store is the only part of the work instance a processor may mutate.

# Process model

Work instances themselves are not safe for concurrent use. The engine
serializes processing per work instance identity; different work
instances are processed independently.
*/
package workflow
