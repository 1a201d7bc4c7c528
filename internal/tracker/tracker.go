// Package tracker is the sole authority for mutating task status. Every
// successful mutation produces exactly one mirrored audit stream record,
// in order.
package tracker

import (
	"log"

	"github.com/kalani-ai/kalani/internal/audit"
	"github.com/kalani-ai/kalani/internal/registry"
	"github.com/kalani-ai/kalani/pkg/models"
)

// Tracker applies state transitions through the registry and mirrors
// them to the append-only audit stream. All other components must treat
// task records as read-only and route changes through here.
//
// The tracker holds its own per-task-id lock across the registry write
// and the stream mirror, so for any one task the stream records appear
// in the same order the mutations were applied. The registry's internal
// lock alone would not give that: it is released before the mirror runs.
type Tracker struct {
	registry *registry.Registry
	stream   *audit.Logger
	locks    *registry.IDLocks
}

// New creates a Tracker. Pass audit.Nop() to disable stream mirroring.
func New(r *registry.Registry, stream *audit.Logger) *Tracker {
	return &Tracker{registry: r, stream: stream, locks: registry.NewIDLocks()}
}

// RecordTransition validates and applies one status transition. On an
// invalid transition nothing is mutated and no stream record is written.
// assignedWorker is only honored on a transition into in_progress.
func (t *Tracker) RecordTransition(taskID string, target models.TaskStatus, actor, note, assignedWorker string) (*models.Task, error) {
	release := t.locks.Acquire(taskID)
	defer release()

	task, err := t.registry.ApplyTransition(taskID, registry.TransitionRequest{
		Target:       target,
		Actor:        actor,
		Note:         note,
		AssignWorker: assignedWorker,
	})
	if err != nil {
		return nil, err
	}

	t.mirror(task, target, note)
	return task, nil
}

// AppendNote records a progress annotation without a status change.
func (t *Tracker) AppendNote(taskID, actor, note string) error {
	release := t.locks.Acquire(taskID)
	defer release()

	if _, err := t.registry.AppendNote(taskID, actor, note); err != nil {
		return err
	}
	if err := t.stream.Log(audit.EventNoteAppended, taskID, "", note); err != nil {
		log.Printf("[tracker] audit stream write failed: %v", err)
	}
	return nil
}

// mirror writes the stream record for an already-applied transition.
// A stream write failure is logged, not surfaced: the durable registry
// record is the source of truth and has already been committed.
func (t *Tracker) mirror(task *models.Task, target models.TaskStatus, note string) {
	from := models.TaskStatus("")
	if n := len(task.History); n > 0 {
		from = task.History[n-1].FromStatus
	}

	var eventType string
	switch target {
	case models.TaskStatusInProgress:
		// A task coming back from blocked resumes; a pending task is
		// delegated for the first time.
		if from == models.TaskStatusBlocked {
			eventType = audit.EventTaskResumed
		} else {
			eventType = audit.EventTaskDelegated
		}
	case models.TaskStatusCompleted:
		eventType = audit.EventTaskCompleted
	case models.TaskStatusFailed:
		eventType = audit.EventTaskFailed
	case models.TaskStatusBlocked:
		eventType = audit.EventTaskBlocked
	case models.TaskStatusCancelled:
		eventType = audit.EventTaskCancelled
	default:
		eventType = audit.EventTaskScheduled
	}

	if err := t.stream.Log(eventType, task.ID, task.AssignedWorker, note); err != nil {
		log.Printf("[tracker] audit stream write failed: %v", err)
	}
}
