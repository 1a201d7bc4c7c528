// Package registry owns task records and their lifecycle: creation,
// retrieval, and serialized state transitions backed by durable storage.
package registry

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalani-ai/kalani/internal/state"
	"github.com/kalani-ai/kalani/pkg/models"
)

// Registry is the sole owner of task record lifetime. All writes for a
// given task id are serialized through a per-id lock; writes for
// different ids proceed in parallel.
type Registry struct {
	store state.TaskStore
	locks *IDLocks
	// now is swappable for tests.
	now func() time.Time
}

// New creates a Registry over the given store.
func New(store state.TaskStore) *Registry {
	return &Registry{
		store: store,
		locks: NewIDLocks(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// TransitionRequest describes one requested state change.
type TransitionRequest struct {
	// Target is the status to move to.
	Target models.TaskStatus
	// Actor identifies who requested the change.
	Actor string
	// Note carries human-readable context, recorded in history.
	Note string
	// AssignWorker, if non-empty, sets the assigned worker. Only valid
	// on a transition into in_progress.
	AssignWorker string
}

// CreateTask validates, assigns an id, and durably persists a new task
// in pending state. The record is persisted before this returns.
func (r *Registry) CreateTask(description string, priority int) (*models.Task, error) {
	if strings.TrimSpace(description) == "" {
		return nil, &models.ValidationError{Field: "description", Reason: "must not be empty"}
	}

	now := r.now()
	task := &models.Task{
		ID:          uuid.New().String()[:8],
		Description: description,
		Status:      models.TaskStatusPending,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entry := &models.AuditEntry{
		Timestamp: now,
		TaskID:    task.ID,
		Event:     models.EventCreated,
		ToStatus:  models.TaskStatusPending,
		Actor:     "registry",
		Note:      description,
	}

	if err := r.store.CreateTask(task, entry); err != nil {
		return nil, err
	}
	task.History = []models.AuditEntry{*entry}
	return task, nil
}

// GetTask retrieves a task with its full history.
func (r *Registry) GetTask(id string) (*models.Task, error) {
	return r.store.GetTask(id)
}

// ListTasks returns tasks matching the filter, ordered by priority
// ascending then creation time ascending.
func (r *Registry) ListTasks(f state.Filter) ([]models.Task, error) {
	return r.store.ListTasks(f)
}

// ApplyTransition applies one state change as a serialized
// read-modify-write. The current status is re-read under the per-id
// lock, so a concurrent transition that landed first is observed and an
// attempt that is no longer valid fails with InvalidTransitionError
// without mutating anything. The per-id lock covers writers in this
// process; the durable update is additionally a compare-and-swap on the
// status read here, so a writer in another process over the same
// database file is observed the same way. On success exactly one audit
// entry is appended and the record persisted atomically.
func (r *Registry) ApplyTransition(id string, req TransitionRequest) (*models.Task, error) {
	if !req.Target.Valid() {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown status " + string(req.Target)}
	}

	release := r.locks.Acquire(id)
	defer release()

	task, err := r.store.GetTask(id)
	if err != nil {
		return nil, err
	}

	if !task.Status.CanTransition(req.Target) {
		return nil, &models.InvalidTransitionError{TaskID: id, From: task.Status, To: req.Target}
	}

	now := r.now()
	event := models.EventStatusChanged
	from := task.Status

	task.Status = req.Target
	task.UpdatedAt = now
	if req.AssignWorker != "" && req.Target == models.TaskStatusInProgress {
		task.AssignedWorker = req.AssignWorker
		event = models.EventDelegated
	}

	entry := &models.AuditEntry{
		Timestamp:  now,
		TaskID:     id,
		Event:      event,
		FromStatus: from,
		ToStatus:   req.Target,
		Actor:      req.Actor,
		Note:       req.Note,
	}

	if err := r.store.UpdateTaskTx(task, from, entry); err != nil {
		return nil, err
	}
	task.History = append(task.History, *entry)
	return task, nil
}

// AppendNote records a progress annotation with no status change.
// Fails with NotFoundError if the task does not exist.
func (r *Registry) AppendNote(id, actor, note string) (*models.AuditEntry, error) {
	release := r.locks.Acquire(id)
	defer release()

	if _, err := r.store.GetTask(id); err != nil {
		return nil, err
	}

	entry := &models.AuditEntry{
		Timestamp: r.now(),
		TaskID:    id,
		Event:     models.EventNote,
		Actor:     actor,
		Note:      note,
	}
	if err := r.store.AppendAuditEntry(entry); err != nil {
		return nil, err
	}
	return entry, nil
}
