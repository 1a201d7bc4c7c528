package models

import "time"

// AuditEvent identifies the kind of change an audit entry records.
type AuditEvent string

const (
	// EventCreated records task creation.
	EventCreated AuditEvent = "created"
	// EventDelegated records a worker assignment.
	EventDelegated AuditEvent = "delegated"
	// EventStatusChanged records a status transition.
	EventStatusChanged AuditEvent = "status_changed"
	// EventNote records a progress annotation with no status change.
	EventNote AuditEvent = "note"
)

// AuditEntry is one immutable record in a task's history. Entries are
// write-once: appended on each mutation, never edited or reordered.
type AuditEntry struct {
	// Timestamp is when the change was applied.
	Timestamp time.Time `json:"timestamp"`
	// TaskID is the task this entry belongs to.
	TaskID string `json:"task_id"`
	// Event is the kind of change.
	Event AuditEvent `json:"event"`
	// FromStatus is the status before the change, if any.
	FromStatus TaskStatus `json:"from_status,omitempty"`
	// ToStatus is the status after the change, if any.
	ToStatus TaskStatus `json:"to_status,omitempty"`
	// Actor identifies who or what applied the change.
	Actor string `json:"actor"`
	// Note carries human-readable context for the change.
	Note string `json:"note,omitempty"`
}
