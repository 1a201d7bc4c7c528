package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kalani-ai/kalani/internal/audit"
	"github.com/kalani-ai/kalani/internal/catalog"
	"github.com/kalani-ai/kalani/internal/delegate"
	"github.com/kalani-ai/kalani/internal/registry"
	"github.com/kalani-ai/kalani/internal/rules"
	"github.com/kalani-ai/kalani/internal/tracker"
	"github.com/kalani-ai/kalani/pkg/models"
)

// Dispatcher hands a delegated task to the external execution
// collaborator. Execution itself (model invocation, shell commands,
// anything the worker actually does) happens outside this engine; the
// collaborator reports back through OnResult.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *models.Task, worker *models.WorkerDefinition) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, task *models.Task, worker *models.WorkerDefinition) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, task *models.Task, worker *models.WorkerDefinition) error {
	return f(ctx, task, worker)
}

// Config bundles the collaborators an Orchestrator needs. Catalog and
// Matcher are read-only after startup; per-task write serialization
// lives in the registry, so Submit is safe to call from many goroutines.
type Config struct {
	Registry   *registry.Registry
	Catalog    *catalog.Catalog
	Matcher    *rules.Matcher
	Tracker    *tracker.Tracker
	Stream     *audit.Logger
	Dispatcher Dispatcher
	// DefaultPriority is assigned to tasks no routing rule matched.
	DefaultPriority int
	// Logger receives debug output. Nil means no debug logging.
	Logger *DebugLogger
}

// Orchestrator is the control-flow glue for one incoming task:
// create -> match -> resolve -> dispatch -> track. It holds no task
// state of its own; everything durable lives in the registry, so the
// process is restartable.
type Orchestrator struct {
	cfg      Config
	resolver *delegate.Resolver
	emitter  *EventEmitter
}

// New creates an Orchestrator from the given collaborators.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	if cfg.Stream == nil {
		cfg.Stream = audit.Nop()
	}
	return &Orchestrator{
		cfg:      cfg,
		resolver: delegate.NewResolver(cfg.Catalog),
		emitter:  NewEventEmitter(100),
	}
}

// Events returns the channel for receiving orchestrator events.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// DroppedEventCount returns the total dropped events.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.emitter.DroppedCount()
}

// Close closes the event channel. Call after all submissions finish.
func (o *Orchestrator) Close() {
	o.emitter.Close()
}

// Submit accepts one incoming task: it creates the record, infers the
// required capabilities from the rule set, delegates to the best
// worker, and hands the task to the dispatcher.
//
// A task that no worker qualifies for is moved to blocked and returned
// with a nil error: the submission itself succeeded and the task stays
// queryable, waiting for the catalog to change or a human to step in.
func (o *Orchestrator) Submit(ctx context.Context, description string) (*models.Task, error) {
	return o.submit(ctx, description, 0, false)
}

// SubmitWithPriority is Submit with an explicit priority that overrides
// both the matched rule's priority and the configured default.
func (o *Orchestrator) SubmitWithPriority(ctx context.Context, description string, priority int) (*models.Task, error) {
	return o.submit(ctx, description, priority, true)
}

func (o *Orchestrator) submit(ctx context.Context, description string, override int, hasOverride bool) (*models.Task, error) {
	match := o.cfg.Matcher.Match(description)

	// Priority precedence: explicit submission value, then the matched
	// rule, then the configured default (lowest urgency).
	priority := o.cfg.DefaultPriority
	if match.Matched {
		priority = match.Priority
	}
	if hasOverride {
		priority = override
	}

	task, err := o.cfg.Registry.CreateTask(description, priority)
	if err != nil {
		return nil, err
	}
	o.cfg.Logger.Log("[submit] task %s created, tags=%v priority=%d", task.ID, match.Tags, priority)

	if err := o.cfg.Stream.Log(audit.EventTaskScheduled, task.ID, "", description); err != nil {
		o.cfg.Logger.Log("[submit] audit stream write failed: %v", err)
	}
	o.emit(Event{Type: EventTaskSubmitted, TaskID: task.ID, Status: task.Status})

	return o.delegateAndDispatch(ctx, task, match.Tags)
}

// Redelegate retries delegation for a blocked task. The capability tags
// are recomputed fresh from the current rule set rather than reusing
// the ones computed at submission, so rule changes made while the task
// sat blocked take effect.
func (o *Orchestrator) Redelegate(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := o.cfg.Registry.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusBlocked {
		return nil, &models.InvalidTransitionError{TaskID: taskID, From: task.Status, To: models.TaskStatusInProgress}
	}

	match := o.cfg.Matcher.Match(task.Description)
	o.cfg.Logger.Log("[redelegate] task %s, recomputed tags=%v", task.ID, match.Tags)
	return o.delegateAndDispatch(ctx, task, match.Tags)
}

// delegateAndDispatch resolves a worker for the task and moves it into
// in_progress, or blocks it when nobody qualifies.
func (o *Orchestrator) delegateAndDispatch(ctx context.Context, task *models.Task, tags []string) (*models.Task, error) {
	worker, err := o.resolver.Resolve(task.ID, tags)
	if err != nil {
		var noWorker *models.NoEligibleWorkerError
		if !errors.As(err, &noWorker) {
			return nil, err
		}

		o.cfg.Logger.Log("[delegate] task %s blocked: %v", task.ID, err)
		blocked, blockErr := o.cfg.Tracker.RecordTransition(
			task.ID, models.TaskStatusBlocked, "orchestrator", err.Error(), "")
		if blockErr != nil {
			// A redelegation attempt leaves the task already blocked;
			// that is the state we wanted anyway.
			var invalid *models.InvalidTransitionError
			if errors.As(blockErr, &invalid) && invalid.From == models.TaskStatusBlocked {
				return task, nil
			}
			return nil, fmt.Errorf("block task %s: %w", task.ID, blockErr)
		}
		o.emit(Event{Type: EventTaskBlocked, TaskID: task.ID, Status: blocked.Status, Err: err})
		return blocked, nil
	}

	delegated, err := o.cfg.Tracker.RecordTransition(
		task.ID, models.TaskStatusInProgress, "orchestrator",
		"delegated to "+worker.ID, worker.ID)
	if err != nil {
		return nil, fmt.Errorf("delegate task %s: %w", task.ID, err)
	}
	o.cfg.Logger.Log("[delegate] task %s -> worker %s", task.ID, worker.ID)
	o.emit(Event{Type: EventTaskDelegated, TaskID: task.ID, WorkerID: worker.ID, Status: delegated.Status})

	if o.cfg.Dispatcher != nil {
		if err := o.cfg.Dispatcher.Dispatch(ctx, delegated, worker); err != nil {
			o.cfg.Logger.Log("[dispatch] task %s failed to dispatch: %v", task.ID, err)
			failed, failErr := o.cfg.Tracker.RecordTransition(
				task.ID, models.TaskStatusFailed, "orchestrator",
				"dispatch failed: "+err.Error(), "")
			if failErr != nil {
				return nil, fmt.Errorf("record dispatch failure for task %s: %w", task.ID, failErr)
			}
			o.emit(Event{Type: EventTaskFailed, TaskID: task.ID, Status: failed.Status, Err: err})
			return failed, nil
		}
	}

	return delegated, nil
}

// OnResult is the execution callback consumed from the external
// executor: it reports the terminal outcome of a dispatched task.
// Outcome must be completed or failed.
func (o *Orchestrator) OnResult(taskID string, outcome models.TaskStatus, note string) (*models.Task, error) {
	if outcome != models.TaskStatusCompleted && outcome != models.TaskStatusFailed {
		return nil, &models.ValidationError{
			Field:  "outcome",
			Reason: "must be completed or failed, got " + string(outcome),
		}
	}

	task, err := o.cfg.Tracker.RecordTransition(taskID, outcome, "executor", note, "")
	if err != nil {
		return nil, err
	}

	eventType := EventTaskCompleted
	if outcome == models.TaskStatusFailed {
		eventType = EventTaskFailed
	}
	o.emit(Event{Type: eventType, TaskID: taskID, Status: task.Status, Message: note})
	return task, nil
}

// Cancel requests an explicit cancel. Cancelling an already-terminal
// task surfaces InvalidTransitionError, never a silent no-op.
func (o *Orchestrator) Cancel(taskID, actor, note string) (*models.Task, error) {
	task, err := o.cfg.Tracker.RecordTransition(taskID, models.TaskStatusCancelled, actor, note, "")
	if err != nil {
		return nil, err
	}
	o.emit(Event{Type: EventTaskCancelled, TaskID: taskID, Status: task.Status})
	return task, nil
}

func (o *Orchestrator) emit(e Event) {
	e.Timestamp = time.Now().UTC()
	o.emitter.Emit(e)
}
