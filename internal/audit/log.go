// Package audit mirrors every status tracker mutation to an append-only
// NDJSON event stream. Records are write-once: the file is only ever
// opened for append and entries are never edited.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event types written to the stream.
const (
	EventTaskScheduled = "task.scheduled"
	EventTaskDelegated = "task.delegated"
	EventTaskCompleted = "task.completed"
	EventTaskFailed    = "task.failed"
	EventTaskBlocked   = "task.blocked"
	EventTaskCancelled = "task.cancelled"
	EventTaskResumed   = "task.resumed"
	EventNoteAppended  = "note.appended"
	EventSweepDone     = "sweep.completed"
)

// Record is one NDJSON line in the event stream.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	RunID     string    `json:"run_id"`
	TaskID    string    `json:"task_id,omitempty"`
	WorkerID  string    `json:"worker_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Logger appends records to events.ndjson under the given directory.
// A single mutex serializes writers so records land whole and in order.
type Logger struct {
	mu    sync.Mutex
	file  *os.File
	nop   bool
	runID string
	now   func() time.Time
}

// NewLogger opens (or creates) the event stream under logsDir.
func NewLogger(logsDir string) (*Logger, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	path := filepath.Join(logsDir, "events.ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}

	now := func() time.Time { return time.Now().UTC() }
	return &Logger{
		file:  f,
		runID: generateRunID(now()),
		now:   now,
	}, nil
}

// generateRunID builds a run id with a minute-resolution timestamp,
// e.g. "r-20260829-1405".
func generateRunID(t time.Time) string {
	return "r-" + t.UTC().Format("20060102-1504")
}

// RunID returns the id shared by all records this process writes.
func (l *Logger) RunID() string {
	return l.runID
}

// Log appends one record to the stream.
func (l *Logger) Log(eventType, taskID, workerID, detail string) error {
	rec := Record{
		Timestamp: l.now(),
		EventType: eventType,
		RunID:     l.runID,
		TaskID:    taskID,
		WorkerID:  workerID,
		Detail:    detail,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.nop {
		return nil
	}
	if l.file == nil {
		return fmt.Errorf("audit logger is closed")
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// Close closes the underlying file. Further Log calls fail.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Nop returns a logger that discards everything, for tests and for
// running with auditing disabled.
func Nop() *Logger {
	return &Logger{nop: true, now: func() time.Time { return time.Now().UTC() }}
}
