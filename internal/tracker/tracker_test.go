package tracker

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kalani-ai/kalani/internal/audit"
	"github.com/kalani-ai/kalani/internal/registry"
	"github.com/kalani-ai/kalani/internal/state"
	"github.com/kalani-ai/kalani/pkg/models"
)

func setupTracker(t *testing.T) (*Tracker, *registry.Registry, string) {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logsDir := t.TempDir()
	stream, err := audit.NewLogger(logsDir)
	if err != nil {
		t.Fatalf("open audit stream: %v", err)
	}
	t.Cleanup(func() { stream.Close() })

	reg := registry.New(db)
	return New(reg, stream), reg, logsDir
}

func streamEvents(t *testing.T, logsDir string) []audit.Record {
	t.Helper()
	f, err := os.Open(filepath.Join(logsDir, "events.ndjson"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer f.Close()

	var records []audit.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec audit.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad stream line: %v", err)
		}
		records = append(records, rec)
	}
	return records
}

func TestRecordTransition_MirrorsOneEvent(t *testing.T) {
	tr, reg, logsDir := setupTracker(t)

	task, err := reg.CreateTask("audit the api", 3)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	updated, err := tr.RecordTransition(task.ID, models.TaskStatusInProgress, "orchestrator", "delegated", "sec-bot")
	if err != nil {
		t.Fatalf("RecordTransition failed: %v", err)
	}
	if updated.AssignedWorker != "sec-bot" {
		t.Errorf("AssignedWorker = %q, want sec-bot", updated.AssignedWorker)
	}

	events := streamEvents(t, logsDir)
	if len(events) != 1 {
		t.Fatalf("stream has %d events, want 1", len(events))
	}
	if events[0].EventType != audit.EventTaskDelegated {
		t.Errorf("EventType = %q, want task.delegated", events[0].EventType)
	}
	if events[0].WorkerID != "sec-bot" {
		t.Errorf("WorkerID = %q, want sec-bot", events[0].WorkerID)
	}
}

func TestRecordTransition_InvalidWritesNothing(t *testing.T) {
	tr, reg, logsDir := setupTracker(t)

	task, err := reg.CreateTask("not started yet", 1)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	_, err = tr.RecordTransition(task.ID, models.TaskStatusCompleted, "executor", "", "")
	var bad *models.InvalidTransitionError
	if !errors.As(err, &bad) {
		t.Fatalf("error = %v, want InvalidTransitionError", err)
	}

	if events := streamEvents(t, logsDir); len(events) != 0 {
		t.Errorf("invalid transition produced %d stream events, want 0", len(events))
	}
}

func TestRecordTransition_FullLifecycleEventOrder(t *testing.T) {
	tr, reg, logsDir := setupTracker(t)

	task, err := reg.CreateTask("full lifecycle", 2)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	steps := []struct {
		target models.TaskStatus
		worker string
		want   string
	}{
		{models.TaskStatusInProgress, "bot", audit.EventTaskDelegated},
		{models.TaskStatusBlocked, "", audit.EventTaskBlocked},
		// Coming back from blocked is a resume, not a first delegation.
		{models.TaskStatusInProgress, "bot", audit.EventTaskResumed},
		{models.TaskStatusCompleted, "", audit.EventTaskCompleted},
	}
	for i, s := range steps {
		if _, err := tr.RecordTransition(task.ID, s.target, "test", "", s.worker); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}

	events := streamEvents(t, logsDir)
	if len(events) != len(steps) {
		t.Fatalf("stream has %d events, want %d", len(events), len(steps))
	}
	for i, s := range steps {
		if events[i].EventType != s.want {
			t.Errorf("events[%d].EventType = %q, want %q", i, events[i].EventType, s.want)
		}
	}
}

func TestConcurrentMutations_StreamMatchesHistoryOrder(t *testing.T) {
	tr, reg, logsDir := setupTracker(t)

	task, err := reg.CreateTask("contended task", 1)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	// Many goroutines mutate the same task. Whatever order the writes
	// land in durably, the stream must mirror that exact order; a mirror
	// slipping behind a later writer's record would reorder the stream.
	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			if err := tr.AppendNote(task.ID, "worker", fmt.Sprintf("note %d", i)); err != nil {
				t.Errorf("AppendNote %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := reg.GetTask(task.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	var historyNotes []string
	for _, e := range got.History {
		if e.Event == models.EventNote {
			historyNotes = append(historyNotes, e.Note)
		}
	}

	var streamNotes []string
	for _, rec := range streamEvents(t, logsDir) {
		if rec.EventType == audit.EventNoteAppended {
			streamNotes = append(streamNotes, rec.Detail)
		}
	}

	if len(historyNotes) != writers || len(streamNotes) != writers {
		t.Fatalf("history has %d notes, stream has %d, want %d each",
			len(historyNotes), len(streamNotes), writers)
	}
	for i := range historyNotes {
		if streamNotes[i] != historyNotes[i] {
			t.Fatalf("stream order diverges at %d: stream %q, history %q",
				i, streamNotes[i], historyNotes[i])
		}
	}
}

func TestAppendNote_Mirrored(t *testing.T) {
	tr, reg, logsDir := setupTracker(t)

	task, err := reg.CreateTask("annotated task", 1)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if err := tr.AppendNote(task.ID, "worker", "checkpoint reached"); err != nil {
		t.Fatalf("AppendNote failed: %v", err)
	}

	events := streamEvents(t, logsDir)
	if len(events) != 1 {
		t.Fatalf("stream has %d events, want 1", len(events))
	}
	if events[0].EventType != audit.EventNoteAppended {
		t.Errorf("EventType = %q, want note.appended", events[0].EventType)
	}
	if events[0].Detail != "checkpoint reached" {
		t.Errorf("Detail = %q", events[0].Detail)
	}
}

func TestAppendNote_UnknownTask(t *testing.T) {
	tr, _, logsDir := setupTracker(t)

	err := tr.AppendNote("ghost", "worker", "hello")
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
	if events := streamEvents(t, logsDir); len(events) != 0 {
		t.Errorf("failed note produced %d stream events, want 0", len(events))
	}
}
