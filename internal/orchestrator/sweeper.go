package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kalani-ai/kalani/internal/audit"
	"github.com/kalani-ai/kalani/internal/state"
	"github.com/kalani-ai/kalani/pkg/models"
)

// Sweeper periodically moves in_progress tasks that have seen no
// update within the stale window to blocked, so work lost to a crashed
// or wedged executor resurfaces instead of hanging forever. Blocked
// tasks can be picked up again with Redelegate.
type Sweeper struct {
	orch        *Orchestrator
	staleWindow time.Duration
	cron        *cron.Cron
	now         func() time.Time
}

// NewSweeper creates a Sweeper over the orchestrator's registry.
// staleWindow is how long an in_progress task may go without an update
// before it is considered abandoned.
func NewSweeper(orch *Orchestrator, staleWindow time.Duration) *Sweeper {
	return &Sweeper{
		orch:        orch,
		staleWindow: staleWindow,
		now:         time.Now,
	}
}

// Start schedules recurring sweeps using a standard 5-field cron
// expression (e.g. "*/5 * * * *"). It returns an error if the
// expression does not parse. Call Stop to halt the schedule.
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.SweepOnce(); err != nil {
			s.orch.cfg.Logger.Log("[sweep] sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the sweep schedule. A sweep already running completes.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// SweepOnce scans for stale in_progress tasks and blocks each one
// through the normal transition path, so every recovered task gets a
// durable audit entry and a stream record like any other transition.
// It returns the number of tasks it moved.
func (s *Sweeper) SweepOnce() (int, error) {
	tasks, err := s.orch.cfg.Registry.ListTasks(state.Filter{
		Statuses: []models.TaskStatus{models.TaskStatusInProgress},
	})
	if err != nil {
		return 0, fmt.Errorf("list in-progress tasks: %w", err)
	}

	cutoff := s.now().Add(-s.staleWindow)
	swept := 0
	for i := range tasks {
		t := &tasks[i]
		if t.UpdatedAt.After(cutoff) {
			continue
		}
		note := fmt.Sprintf("no update since %s, recovered by sweep",
			t.UpdatedAt.UTC().Format(time.RFC3339))
		blocked, err := s.orch.cfg.Tracker.RecordTransition(
			t.ID, models.TaskStatusBlocked, "sweeper", note, "")
		if err != nil {
			// The executor may have reported a result between the
			// list and the transition; skip and keep sweeping.
			var invalid *models.InvalidTransitionError
			if !errors.As(err, &invalid) {
				return swept, fmt.Errorf("block stale task %s: %w", t.ID, err)
			}
			s.orch.cfg.Logger.Log("[sweep] task %s changed state mid-sweep, skipping", t.ID)
			continue
		}
		s.orch.emit(Event{Type: EventTaskBlocked, TaskID: t.ID, Status: blocked.Status, Message: note})
		swept++
	}

	if swept > 0 {
		detail := fmt.Sprintf("recovered %d stale task(s)", swept)
		if err := s.orch.cfg.Stream.Log(audit.EventSweepDone, "", "", detail); err != nil {
			s.orch.cfg.Logger.Log("[sweep] audit stream write failed: %v", err)
		}
		s.orch.emit(Event{Type: EventSweepCompleted, Message: detail})
	}
	return swept, nil
}
