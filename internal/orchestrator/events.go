// Package orchestrator sequences task intake, rule matching, delegation,
// dispatch, and status tracking.
package orchestrator

import (
	"time"

	"github.com/kalani-ai/kalani/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskSubmitted indicates a task was accepted into the registry.
	EventTaskSubmitted EventType = "task_submitted"
	// EventTaskDelegated indicates a task was bound to a worker.
	EventTaskDelegated EventType = "task_delegated"
	// EventTaskBlocked indicates no worker qualified and the task is
	// waiting for intervention.
	EventTaskBlocked EventType = "task_blocked"
	// EventTaskCompleted indicates the executor reported success.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates the executor reported failure.
	EventTaskFailed EventType = "task_failed"
	// EventTaskCancelled indicates an explicit cancel was applied.
	EventTaskCancelled EventType = "task_cancelled"
	// EventSweepCompleted indicates a stale-task recovery sweep ran.
	EventSweepCompleted EventType = "sweep_completed"
)

// Event represents an event emitted by the orchestrator. Subscribers
// (CLI, external monitors) use these to track progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// WorkerID is the ID of the assigned worker, if applicable.
	WorkerID string
	// Status is the task status after the event, if applicable.
	Status models.TaskStatus
	// Message provides additional context about the event.
	Message string
	// Err contains error details for failure events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
