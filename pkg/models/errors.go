package models

import "fmt"

// ValidationError reports malformed input at an API boundary, such as an
// empty task description. The call is rejected; nothing is applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a reference to an unknown task or worker id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// InvalidTransitionError reports an attempted state machine violation.
// No mutation occurs; the caller must inspect the current status to
// decide what to do next.
type InvalidTransitionError struct {
	TaskID string
	From   TaskStatus
	To     TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s: invalid transition %s -> %s", e.TaskID, e.From, e.To)
}

// NoEligibleWorkerError reports that delegation found no qualifying
// worker. Recoverable: the task moves to blocked and may be
// re-delegated after the catalog changes.
type NoEligibleWorkerError struct {
	TaskID string
	Tags   []string
}

func (e *NoEligibleWorkerError) Error() string {
	if len(e.Tags) == 0 {
		return fmt.Sprintf("task %s: no routing rule matched, escalation required", e.TaskID)
	}
	return fmt.Sprintf("task %s: no worker matches capabilities %v", e.TaskID, e.Tags)
}

// ConfigurationError reports an invalid worker catalog or rule set.
// Fatal to startup: the process must not accept tasks with an invalid
// catalog.
type ConfigurationError struct {
	Source string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Source, e.Reason)
}
