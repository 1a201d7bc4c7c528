package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been created but not delegated.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is assigned and being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed during execution.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusBlocked indicates the task cannot proceed without intervention.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusCancelled indicates the task was explicitly cancelled.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusBlocked, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are permitted from s.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// transitions is the authoritative state machine table. A status maps to
// the set of statuses it may move to. Terminal statuses have no entry.
var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusInProgress, TaskStatusBlocked, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusFailed, TaskStatusBlocked, TaskStatusCancelled},
	TaskStatusBlocked:    {TaskStatusInProgress, TaskStatusCancelled},
}

// CanTransition returns true if moving from s to target is a permitted
// state machine edge.
func (s TaskStatus) CanTransition(target TaskStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Task represents a unit of work routed through the delegation engine.
type Task struct {
	// ID is the unique identifier, assigned at creation. Immutable.
	ID string `json:"id"`
	// Description is the free-text task description. Immutable.
	Description string `json:"description"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// AssignedWorker is the worker this task was delegated to.
	// Empty while pending.
	AssignedWorker string `json:"assigned_worker,omitempty"`
	// Priority is the urgency; lower values are more urgent. Derived
	// from the matched routing rule at creation time. Immutable.
	Priority int `json:"priority"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is bumped on every status transition.
	UpdatedAt time.Time `json:"updated_at"`
	// History is the append-only sequence of audit entries. Never
	// mutated or reordered, only appended.
	History []AuditEntry `json:"history,omitempty"`
}
